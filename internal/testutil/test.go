// Copyright 2025 YishanCoding
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package test loads the shipped configuration for the test suite. Tests
// run from their own package directories, so the configs directory is
// resolved from this file's location rather than the working directory.
package test

import (
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/cloud"
)

// StateManager caches the loaded configuration so the TOML files are read
// once per test run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// SetupOS points the configuration loader at the repository's configs
// directory and selects the "test" runtime overlay.
func SetupOS() (err error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		log.Fatal("unable to resolve test source location")
	}
	configDir := filepath.Join(filepath.Dir(thisFile), "..", "..", "configs")

	err = os.Setenv(cloud.EnvConfigFilePrefix, configDir)
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration, loaded
// from the base TOML file plus the test overlay.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
