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

// Package workflow assembles commands into the multi-step pipelines of the
// campaign generator. This file implements the reference-video analysis
// workflow: structured breakdown first, then per-scene frame capture.
package workflow

import (
	"context"
	"errors"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/cloud"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/commands"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/cor"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/genclient"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/mediacodec"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

// VideoAnalysisWorkflow runs the two-step reference-video analysis chain.
// The analysis call and the frame capture are separate commands so each is
// individually traced and a frame-capture failure is attributable apart
// from a model failure.
type VideoAnalysisWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// NewVideoAnalysisWorkflow wires the analysis chain from the generation
// client and the pipeline's frame capturer.
func NewVideoAnalysisWorkflow(client *genclient.Client, capturer *mediacodec.FrameCapturer) *VideoAnalysisWorkflow {
	out := &VideoAnalysisWorkflow{BaseCommand: *cor.NewBaseCommand("video-analysis-workflow")}

	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewAnalyzeVideo("analyze-video", client))
	chain.AddCommand(commands.NewAttachSceneFrames("attach-scene-frames", capturer))
	out.chain = chain
	return out
}

func (w *VideoAnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Analyze runs the workflow for one video and returns the analysis with
// scene screenshots attached. This is the entry point the orchestrator
// calls; the cor plumbing stays internal to the workflow.
func (w *VideoAnalysisWorkflow) Analyze(ctx context.Context, video *model.MediaAsset) (*model.VideoAnalysisResult, error) {
	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, video)

	w.Execute(chCtx)

	if chCtx.HasErrors() {
		errs := make([]error, 0, len(chCtx.GetErrors()))
		for _, err := range chCtx.GetErrors() {
			errs = append(errs, err)
		}
		return nil, errors.Join(errs...)
	}

	analysis, ok := chCtx.Get(cor.CtxIn).(*model.VideoAnalysisResult)
	if !ok {
		return nil, cloud.NewContractError("analysis workflow produced no result")
	}
	return analysis, nil
}
