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

package main

import (
	"context"
	"log"
	"os"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/cloud"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/genclient"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/history"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/mediacodec"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/orchestrator"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/services"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/workflow"
)

// StateManager holds the shared components of the server.
type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	orchestrator *orchestrator.Orchestrator
	exporter     *services.Exporter
}

var state = &StateManager{}

func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState wires the generation client, the analysis workflow, and the
// orchestrator. The Gemini API key is resolved once here, from the env
// var the configuration names, and handed in explicitly.
func InitState(ctx context.Context) {
	config := GetConfig()

	apiKey := os.Getenv(config.Application.APIKeyEnv)
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config, apiKey)
	if err != nil {
		log.Fatalf("failed to create cloud clients: %v\n", err)
	}
	state.cloud = cloudClients

	genClient, err := genclient.NewClient(config, cloudClients)
	if err != nil {
		log.Fatalf("failed to create generation client: %v\n", err)
	}

	capturer := mediacodec.NewFrameCapturer(config.Pipeline)
	analysisWorkflow := workflow.NewVideoAnalysisWorkflow(genClient, capturer)

	state.orchestrator = orchestrator.New(orchestrator.Options{
		Generator:     genClient,
		Analyzer:      analysisWorkflow,
		Composer:      mediacodec.NewGridComposer(),
		History:       history.NewStore(config.Pipeline.HistoryCap),
		VisualWorkers: config.Pipeline.VisualWorkers,
	})
	state.exporter = services.NewExporter()
}
