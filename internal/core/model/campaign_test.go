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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", FormatTimestamp(0))
	assert.Equal(t, "00:03", FormatTimestamp(3.7))
	assert.Equal(t, "01:05", FormatTimestamp(65))
	assert.Equal(t, "10:00", FormatTimestamp(600))
	assert.Equal(t, "00:00", FormatTimestamp(-4))
}

func TestDurationSeconds(t *testing.T) {
	assert.Equal(t, 15, DurationShort.Seconds())
	assert.Equal(t, 25, DurationLong.Seconds())
	assert.Equal(t, 15, Duration("unknown").Seconds())
}

func TestSceneCategoryIsValid(t *testing.T) {
	for _, c := range SceneCategories() {
		assert.True(t, c.IsValid())
	}
	assert.False(t, SceneCategory("Teaser").IsValid())
}

func TestConfigurationNormalize(t *testing.T) {
	var cfg Configuration
	cfg.Normalize()
	assert.Equal(t, LanguageEnglish, cfg.Language)
	assert.Equal(t, DurationShort, cfg.Duration)
	assert.Equal(t, DefaultSceneCount, cfg.SceneCount)
	assert.Equal(t, MinVariantCount, cfg.VariantCount)

	cfg = Configuration{SceneCount: 99, VariantCount: 99}
	cfg.Normalize()
	assert.Equal(t, MaxSceneCount, cfg.SceneCount)
	assert.Equal(t, MaxVariantCount, cfg.VariantCount)

	cfg = Configuration{SceneCount: 1, VariantCount: -3}
	cfg.Normalize()
	assert.Equal(t, MinSceneCount, cfg.SceneCount)
	assert.Equal(t, MinVariantCount, cfg.VariantCount)
}

func TestMediaAssetClone(t *testing.T) {
	original := &MediaAsset{ID: "a", Name: "front.jpg", MIMEType: "image/jpeg", Data: []byte{1, 2, 3}}
	clone := original.Clone()

	clone.Data[0] = 9
	assert.Equal(t, byte(1), original.Data[0])

	var nilAsset *MediaAsset
	assert.Nil(t, nilAsset.Clone())
}

func TestVideoAnalysisResultClone(t *testing.T) {
	original := &VideoAnalysisResult{
		Scenes: []*VideoScene{
			{Category: CategoryHook, Description: "opening", RawStartTime: 0, RawEndTime: 3},
		},
		Features:    []FeatureItem{{Text: "Waterproof", Translation: "防水"}},
		VisualStyle: "Minimalist",
	}
	clone := original.Clone()

	clone.Scenes[0].Description = "changed"
	clone.Features[0].Text = "changed"
	assert.Equal(t, "opening", original.Scenes[0].Description)
	assert.Equal(t, "Waterproof", original.Features[0].Text)

	var nilResult *VideoAnalysisResult
	assert.Nil(t, nilResult.Clone())
}

func TestHistoryItemCloneIsDeep(t *testing.T) {
	original := &HistoryItem{
		ID:            "h1",
		ProductImages: []*MediaAsset{{ID: "img", Data: []byte{1}}},
		ReferenceVideo: &MediaAsset{
			ID: "vid", Data: []byte{2},
		},
		VideoAnalysis: &VideoAnalysisResult{
			Scenes: []*VideoScene{{Description: "opening"}},
		},
		SelectedFeatures: []string{"Waterproof"},
		GeneratedContent: &GeneratedContent{
			ProductReference: "ref",
			Variants: []*ScriptVariant{
				{ID: "v1", Script: []*ScriptRow{{ID: "r1", Visual: "shot"}}},
			},
		},
	}
	clone := original.Clone()
	require.NotSame(t, original, clone)

	clone.ProductImages[0].Data[0] = 9
	clone.ReferenceVideo.Data[0] = 9
	clone.VideoAnalysis.Scenes[0].Description = "changed"
	clone.SelectedFeatures[0] = "changed"
	clone.GeneratedContent.Variants[0].Script[0].Visual = "changed"

	assert.Equal(t, byte(1), original.ProductImages[0].Data[0])
	assert.Equal(t, byte(2), original.ReferenceVideo.Data[0])
	assert.Equal(t, "opening", original.VideoAnalysis.Scenes[0].Description)
	assert.Equal(t, "Waterproof", original.SelectedFeatures[0])
	assert.Equal(t, "shot", original.GeneratedContent.Variants[0].Script[0].Visual)
}

func TestHistoryItemCloneHandlesAbsentSlots(t *testing.T) {
	original := &HistoryItem{ID: "h2"}
	clone := original.Clone()
	assert.Nil(t, clone.ReferenceVideo)
	assert.Nil(t, clone.VideoAnalysis)
	assert.Nil(t, clone.GeneratedContent)
}
