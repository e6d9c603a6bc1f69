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

// Package commands provides the concrete Command implementations of the
// video analysis chain: the structured Gemini breakdown of the reference
// video followed by frame capture for each detected scene.
package commands

import (
	"fmt"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/cor"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/genclient"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

// CtxVideoAsset is the context key under which the workflow publishes the
// reference video so that commands after the first can still reach it.
const CtxVideoAsset = "__video_asset__"

// AnalyzeVideo sends the reference video through the structured analysis
// model. Input: *model.MediaAsset. Output: *model.VideoAnalysisResult
// without screenshots; those are attached by the next command.
type AnalyzeVideo struct {
	cor.BaseCommand
	client *genclient.Client
}

func NewAnalyzeVideo(name string, client *genclient.Client) *AnalyzeVideo {
	return &AnalyzeVideo{BaseCommand: *cor.NewBaseCommand(name), client: client}
}

func (t *AnalyzeVideo) IsExecutable(context cor.Context) bool {
	_, ok := context.Get(t.GetInputParam()).(*model.MediaAsset)
	return ok
}

func (t *AnalyzeVideo) Execute(context cor.Context) {
	video := context.Get(t.GetInputParam()).(*model.MediaAsset)

	analysis, err := t.client.AnalyzeVideo(context.GetContext(), video.Part())
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("video analysis failed: %w", err))
		return
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(CtxVideoAsset, video)
	context.Add(t.GetOutputParam(), analysis)
}
