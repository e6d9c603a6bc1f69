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

package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

func snapshot(description string) *model.HistoryItem {
	return &model.HistoryItem{
		ProductImages: []*model.MediaAsset{
			{ID: "img-1", Name: "front.jpg", MIMEType: "image/jpeg", Data: []byte{1, 2, 3}},
		},
		SelectedFeatures: []string{"Waterproof"},
		Config: model.Configuration{
			ProductDescription: description,
			Language:           model.LanguageEnglish,
			Duration:           model.DurationShort,
			SceneCount:         3,
			VariantCount:       1,
		},
		GeneratedContent: &model.GeneratedContent{
			ProductReference: "ref",
			Variants: []*model.ScriptVariant{
				{ID: "v1", Name: "Variant 1", Script: []*model.ScriptRow{{ID: "r1", Visual: "opening shot"}}},
			},
		},
	}
}

func TestAppendIsNewestFirstAndAssignsIdentity(t *testing.T) {
	store := NewStore(0)
	first := store.Append(snapshot("first"))
	second := store.Append(snapshot("second"))

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.Timestamp.Before(first.Timestamp))

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Config.ProductDescription)
	assert.Equal(t, "first", items[1].Config.ProductDescription)
}

func TestAppendEnforcesCapacity(t *testing.T) {
	store := NewStore(2)
	store.Append(snapshot("a"))
	store.Append(snapshot("b"))
	store.Append(snapshot("c"))

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].Config.ProductDescription)
	assert.Equal(t, "b", items[1].Config.ProductDescription)
}

func TestStoredSnapshotsAreIndependentOfCaller(t *testing.T) {
	store := NewStore(0)
	original := snapshot("session")
	stored := store.Append(original)

	// Mutating the caller's value after the append must not reach the store.
	original.GeneratedContent.Variants[0].Script[0].Visual = "tampered"
	original.ProductImages[0].Data[0] = 99
	original.SelectedFeatures[0] = "tampered"

	fetched, ok := store.Get(stored.ID)
	require.True(t, ok)
	assert.Equal(t, "opening shot", fetched.GeneratedContent.Variants[0].Script[0].Visual)
	assert.Equal(t, byte(1), fetched.ProductImages[0].Data[0])
	assert.Equal(t, "Waterproof", fetched.SelectedFeatures[0])

	// Mutating a fetched copy must not reach the store either.
	fetched.GeneratedContent.Variants[0].Script[0].Visual = "tampered again"
	again, ok := store.Get(stored.ID)
	require.True(t, ok)
	assert.Equal(t, "opening shot", again.GeneratedContent.Variants[0].Script[0].Visual)
}

func TestGetUnknownID(t *testing.T) {
	store := NewStore(0)
	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}
