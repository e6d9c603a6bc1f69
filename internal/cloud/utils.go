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

// Hierarchical configuration loading. A base .env.toml file is read first,
// then an environment-specific .env.<runtime>.toml overlays it, so a test
// or local runtime can override individual values without duplicating the
// whole file.
package cloud

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "ARCHITECT_CONFIG_PREFIX" // Directory holding the config files.
	EnvConfigRuntime    = "ARCHITECT_RUNTIME"       // Runtime context: "local", "test", "prod".
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates baseConfig from the base TOML file and then from the
// runtime-specific overlay, if either exists. The runtime defaults to
// "test" when unset, which is what the test suite relies on.
func LoadConfig(baseConfig interface{}) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}

	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = "test"
	}

	baseFile := prefix + ConfigFileBaseName + ConfigFileExtension
	envFile := prefix + ConfigFileBaseName + ConfigSeparator + runtime + ConfigFileExtension

	if fileExists(baseFile) {
		if _, err := toml.DecodeFile(baseFile, baseConfig); err != nil {
			log.Fatalf("failed to decode base configuration file %s: %s", baseFile, err)
		}
	}
	if fileExists(envFile) {
		if _, err := toml.DecodeFile(envFile, baseConfig); err != nil {
			log.Fatalf("failed to decode environment configuration file %s: %s", envFile, err)
		}
	}
}
