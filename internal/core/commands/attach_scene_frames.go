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

package commands

import (
	"fmt"
	"log/slog"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/cor"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/mediacodec"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

// AttachSceneFrames captures one still per detected scene, at the scene's
// raw start offset, and attaches each frame to its scene by index. Input:
// *model.VideoAnalysisResult. Output: the same result with screenshots
// filled in where capture succeeded; a scene whose frame could not be
// grabbed keeps an empty screenshot and the chain continues.
type AttachSceneFrames struct {
	cor.BaseCommand
	capturer *mediacodec.FrameCapturer
}

func NewAttachSceneFrames(name string, capturer *mediacodec.FrameCapturer) *AttachSceneFrames {
	return &AttachSceneFrames{BaseCommand: *cor.NewBaseCommand(name), capturer: capturer}
}

func (t *AttachSceneFrames) IsExecutable(context cor.Context) bool {
	if _, ok := context.Get(t.GetInputParam()).(*model.VideoAnalysisResult); !ok {
		return false
	}
	_, ok := context.Get(CtxVideoAsset).(*model.MediaAsset)
	return ok
}

func (t *AttachSceneFrames) Execute(context cor.Context) {
	analysis := context.Get(t.GetInputParam()).(*model.VideoAnalysisResult)
	video := context.Get(CtxVideoAsset).(*model.MediaAsset)

	timestamps := make([]float64, len(analysis.Scenes))
	for i, scene := range analysis.Scenes {
		timestamps[i] = scene.RawStartTime
	}

	frames, err := t.capturer.CaptureFrames(context.GetContext(), video, timestamps)
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("scene frame capture failed: %w", err))
		return
	}

	missing := 0
	for i, frame := range frames {
		if frame == "" {
			missing++
			continue
		}
		analysis.Scenes[i].Screenshot = frame
	}
	if missing > 0 {
		slog.Warn("some scene frames could not be captured", "missing", missing, "total", len(frames))
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), analysis)
}
