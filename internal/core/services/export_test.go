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

package services

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

func TestImageArtifactFilenames(t *testing.T) {
	e := NewExporter()
	b64 := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

	ref, err := e.ImageArtifact(ArtifactProductReference, b64, 0)
	require.NoError(t, err)
	assert.Equal(t, "product_reference_grid.jpg", ref.Filename)
	assert.Equal(t, "image/jpeg", ref.MIMEType)
	assert.Equal(t, []byte("jpeg-bytes"), ref.Data)

	grid, err := e.ImageArtifact(ArtifactFinalGrid, b64, 0)
	require.NoError(t, err)
	assert.Equal(t, "final_storyboard_grid.jpg", grid.Filename)

	scene, err := e.ImageArtifact(ArtifactSceneImage, b64, 3)
	require.NoError(t, err)
	assert.Equal(t, "scene_03.jpg", scene.Filename)
}

func TestImageArtifactAcceptsDataURL(t *testing.T) {
	e := NewExporter()
	b64 := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("x"))
	artifact, err := e.ImageArtifact(ArtifactFinalGrid, b64, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), artifact.Data)
}

func TestImageArtifactRejectsEmptyAndGarbage(t *testing.T) {
	e := NewExporter()
	_, err := e.ImageArtifact(ArtifactFinalGrid, "", 0)
	assert.Error(t, err)

	_, err = e.ImageArtifact(ArtifactFinalGrid, "!!not base64!!", 0)
	assert.Error(t, err)
}

func TestScriptText(t *testing.T) {
	variant := &model.ScriptVariant{
		Name:         "Hook First",
		MotionPrompt: "Slow push-in on the backpack throughout.",
		Script: []*model.ScriptRow{
			{Timeframe: "0-3s", Visual: "Close-up of zipper", Audio: "Check this out"},
			{Timeframe: "3-8s", Visual: "Pouring water over the bag", Audio: "Completely waterproof"},
		},
	}

	text := NewExporter().ScriptText(variant)
	assert.Equal(t,
		"Slow push-in on the backpack throughout.\n\n"+
			"[0-3s] Scene: Close-up of zipper | Audio: Check this out\n"+
			"[3-8s] Scene: Pouring water over the bag | Audio: Completely waterproof",
		text)

	assert.Empty(t, NewExporter().ScriptText(nil))
}
