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

package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/genclient"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/history"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

// fakeBackend implements Generator, Analyzer and Composer with canned
// results and per-call hooks so tests can inject failures and delays.
type fakeBackend struct {
	mu sync.Mutex

	analysis       *model.VideoAnalysisResult
	analyzeGate    chan struct{} // when non-nil, Analyze blocks until closed
	sceneGate      chan struct{} // when non-nil, GenerateSceneImage blocks until closed
	sceneCalls     []string      // row IDs scene images were requested for
	failSceneRows  map[string]bool
	failRegenerate bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		analysis: &model.VideoAnalysisResult{
			Scenes: []*model.VideoScene{
				{StartTime: "00:00", EndTime: "00:03", RawStartTime: 0, RawEndTime: 3, Category: model.CategoryHook, Description: "opening"},
			},
			Features:    []model.FeatureItem{{Text: "Waterproof", Translation: "防水"}},
			VisualStyle: "Minimalist",
			Pacing:      "Fast",
			ColorGrade:  "Warm",
		},
		failSceneRows: make(map[string]bool),
	}
}

func (f *fakeBackend) Analyze(ctx context.Context, video *model.MediaAsset) (*model.VideoAnalysisResult, error) {
	if f.analyzeGate != nil {
		<-f.analyzeGate
	}
	return f.analysis.Clone(), nil
}

func (f *fakeBackend) GenerateProductGrid(ctx context.Context, images []model.MediaPart, description string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte("product-grid")), nil
}

func (f *fakeBackend) GenerateScripts(ctx context.Context, req genclient.ScriptRequest) ([]*model.ScriptVariant, error) {
	variants := make([]*model.ScriptVariant, 0, req.VariantCount)
	for v := 0; v < req.VariantCount; v++ {
		variant := &model.ScriptVariant{
			ID:           uuid.NewString(),
			Name:         fmt.Sprintf("Variant %d", v+1),
			MotionPrompt: "Slow push-in",
		}
		for r := 0; r < req.SceneCount; r++ {
			variant.Script = append(variant.Script, &model.ScriptRow{
				ID:        uuid.NewString(),
				Timeframe: fmt.Sprintf("%d-%ds", r*5, (r+1)*5),
				Visual:    fmt.Sprintf("scene %d", r+1),
				Audio:     fmt.Sprintf("line %d", r+1),
			})
		}
		variants = append(variants, variant)
	}
	return variants, nil
}

func (f *fakeBackend) GenerateSceneImage(ctx context.Context, row *model.ScriptRow, reference model.MediaPart) (string, error) {
	if f.sceneGate != nil {
		<-f.sceneGate
	}
	f.mu.Lock()
	f.sceneCalls = append(f.sceneCalls, row.ID)
	fail := f.failSceneRows[row.ID]
	f.mu.Unlock()
	if fail {
		return "", errors.New("render failed")
	}
	return base64.StdEncoding.EncodeToString([]byte("scene-" + row.ID)), nil
}

func (f *fakeBackend) RegenerateRow(ctx context.Context, variant *model.ScriptVariant, row *model.ScriptRow, language model.Language) (*model.ScriptRow, error) {
	if f.failRegenerate {
		return nil, errors.New("rewrite failed")
	}
	next := *row
	next.Visual = "rewritten " + row.Visual
	next.Audio = "rewritten " + row.Audio
	return &next, nil
}

func newTestOrchestrator(backend *fakeBackend) *Orchestrator {
	return New(Options{
		Generator:     backend,
		Analyzer:      backend,
		Composer:      backend,
		History:       history.NewStore(0),
		VisualWorkers: 1,
	})
}

func (f *fakeBackend) ComposeGrid(ctx context.Context, images []string) (string, error) {
	if len(images) == 0 {
		return "", nil
	}
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("grid-of-%d", len(images)))), nil
}

func asset(name, mime string) *model.MediaAsset {
	return &model.MediaAsset{ID: uuid.NewString(), Name: name, MIMEType: mime, Data: []byte(name)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(time.Millisecond)
	}
}

// runThroughScripts drives the pipeline to the point where one variant of
// script rows exists.
func runThroughScripts(t *testing.T, o *Orchestrator) *model.ScriptVariant {
	t.Helper()
	ctx := context.Background()

	o.AddProductImages(asset("front.jpg", "image/jpeg"))
	o.SetReferenceVideo(asset("ref.mp4", "video/mp4"))
	o.SetConfiguration(model.Configuration{
		ProductDescription: "waterproof hiking backpack",
		Language:           model.LanguageEnglish,
		Duration:           model.DurationShort,
		SceneCount:         3,
		VariantCount:       1,
	})

	require.NoError(t, o.GenerateProductGrid(ctx))
	require.NoError(t, o.AnalyzeVideo(ctx))
	o.ToggleFeature("Waterproof")
	require.NoError(t, o.GenerateScripts(ctx))

	state := o.State()
	require.Len(t, state.Generated.Variants, 1)
	require.Len(t, state.Generated.Variants[0].Script, 3)
	return state.Generated.Variants[0]
}

func TestGenerateScriptsPreconditions(t *testing.T) {
	o := newTestOrchestrator(newFakeBackend())
	ctx := context.Background()

	var preErr *PreconditionError
	err := o.GenerateScripts(ctx)
	require.ErrorAs(t, err, &preErr)
	assert.Contains(t, preErr.Reason, "analyze")

	o.SetReferenceVideo(asset("ref.mp4", "video/mp4"))
	require.NoError(t, o.AnalyzeVideo(ctx))

	err = o.GenerateScripts(ctx)
	require.ErrorAs(t, err, &preErr)
	assert.Contains(t, preErr.Reason, "feature")

	// Precondition rejections record no stage error.
	assert.Empty(t, o.State().StageErrors)
}

func TestToggleFeatureOnlyAcceptsAnalyzedFeatures(t *testing.T) {
	o := newTestOrchestrator(newFakeBackend())
	ctx := context.Background()

	// Nothing is selectable before an analysis exists.
	o.ToggleFeature("Waterproof")
	assert.Empty(t, o.State().SelectedFeatures)

	o.SetReferenceVideo(asset("ref.mp4", "video/mp4"))
	require.NoError(t, o.AnalyzeVideo(ctx))

	// Text the analysis never produced cannot satisfy the script gate.
	o.ToggleFeature("Bulletproof")
	assert.Empty(t, o.State().SelectedFeatures)

	o.ToggleFeature("Waterproof")
	assert.Equal(t, []string{"Waterproof"}, o.State().SelectedFeatures)

	// Deselecting an already-selected feature always works.
	o.ToggleFeature("Waterproof")
	assert.Empty(t, o.State().SelectedFeatures)
}

func TestReplacingVideoClearsDerivedState(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(backend)
	runThroughScripts(t, o)

	productReference := o.State().Generated.ProductReference
	require.NotEmpty(t, productReference)

	o.SetReferenceVideo(asset("other.mp4", "video/mp4"))

	state := o.State()
	assert.Nil(t, state.VideoAnalysis)
	assert.Empty(t, state.SelectedFeatures)
	assert.Empty(t, state.Generated.Variants)
	assert.Empty(t, state.Generated.FinalGrid)
	// The reference sheet derives from product images, not the video.
	assert.Equal(t, productReference, state.Generated.ProductReference)
}

func TestRemovingVideoClearsAnalysisEvenWithoutPriorOne(t *testing.T) {
	o := newTestOrchestrator(newFakeBackend())
	o.SetReferenceVideo(asset("ref.mp4", "video/mp4"))
	o.RemoveReferenceVideo()

	state := o.State()
	assert.Nil(t, state.ReferenceVideo)
	assert.Nil(t, state.VideoAnalysis)
	assert.Empty(t, state.SelectedFeatures)
}

func TestStaleAnalysisResultIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	backend.analyzeGate = make(chan struct{})
	o := newTestOrchestrator(backend)
	o.SetReferenceVideo(asset("ref.mp4", "video/mp4"))

	done := make(chan error, 1)
	go func() { done <- o.AnalyzeVideo(context.Background()) }()

	// Wait for the stage to go busy, then swap the video underneath it.
	waitFor(t, func() bool { return o.State().IsAnalyzing })
	o.SetReferenceVideo(asset("other.mp4", "video/mp4"))
	close(backend.analyzeGate)

	err := <-done
	require.ErrorIs(t, err, ErrSuperseded)
	state := o.State()
	assert.Nil(t, state.VideoAnalysis)
	assert.False(t, state.IsAnalyzing)
}

func TestSameStageReentrancyRejected(t *testing.T) {
	backend := newFakeBackend()
	backend.analyzeGate = make(chan struct{})
	o := newTestOrchestrator(backend)
	o.SetReferenceVideo(asset("ref.mp4", "video/mp4"))

	done := make(chan error, 1)
	go func() { done <- o.AnalyzeVideo(context.Background()) }()
	waitFor(t, func() bool { return o.State().IsAnalyzing })

	err := o.AnalyzeVideo(context.Background())
	require.ErrorIs(t, err, ErrStageBusy)

	// Other stages stay available while analysis is in flight.
	o.AddProductImages(asset("front.jpg", "image/jpeg"))
	require.NoError(t, o.GenerateProductGrid(context.Background()))

	close(backend.analyzeGate)
	require.NoError(t, <-done)
}

func TestGenerateAllVisualsSkipsRenderedAndSurvivesFailure(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(backend)
	variant := runThroughScripts(t, o)

	// Pre-render the first row and make the second one fail.
	require.NoError(t, o.GenerateSceneImage(context.Background(), variant.ID, variant.Script[0].ID))
	backend.mu.Lock()
	backend.sceneCalls = nil
	backend.failSceneRows[variant.Script[1].ID] = true
	backend.mu.Unlock()

	err := o.GenerateAllVisuals(context.Background(), variant.ID)
	require.Error(t, err)

	backend.mu.Lock()
	calls := append([]string(nil), backend.sceneCalls...)
	backend.mu.Unlock()

	// Row 0 already had an image and is never re-requested; the failure on
	// row 1 does not stop row 2.
	assert.Equal(t, []string{variant.Script[1].ID, variant.Script[2].ID}, calls)

	state := o.State()
	script := state.Generated.Variants[0].Script
	assert.NotEmpty(t, script[0].GeneratedVisual)
	assert.Empty(t, script[1].GeneratedVisual)
	assert.NotEmpty(t, script[2].GeneratedVisual)
	assert.False(t, state.IsGeneratingVisuals)
	assert.Contains(t, state.StageErrors, StageVisuals)
	for _, row := range script {
		assert.False(t, row.IsRegenerating)
	}
}

func TestVideoSwapDuringBatchVisualsDiscardsAndUnblocksStage(t *testing.T) {
	backend := newFakeBackend()
	backend.sceneGate = make(chan struct{})
	o := newTestOrchestrator(backend)
	variant := runThroughScripts(t, o)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- o.GenerateAllVisuals(ctx, variant.ID) }()

	// Wait for the stage to go busy, then swap the video underneath it.
	waitFor(t, func() bool { return o.State().IsGeneratingVisuals })
	o.SetReferenceVideo(asset("other.mp4", "video/mp4"))
	close(backend.sceneGate)

	require.ErrorIs(t, <-done, ErrSuperseded)

	state := o.State()
	assert.False(t, state.IsGeneratingVisuals)
	assert.Empty(t, state.Generated.Variants)

	// The stage is immediately available again: the retry is rejected on
	// the missing variant, not as busy.
	var preErr *PreconditionError
	require.ErrorAs(t, o.GenerateAllVisuals(ctx, variant.ID), &preErr)
	assert.Contains(t, preErr.Reason, "variant")
}

func TestSceneImageRequiresProductReference(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(backend)
	ctx := context.Background()

	o.SetReferenceVideo(asset("ref.mp4", "video/mp4"))
	o.SetConfiguration(model.Configuration{SceneCount: 3, VariantCount: 1})
	require.NoError(t, o.AnalyzeVideo(ctx))
	o.ToggleFeature("Waterproof")
	require.NoError(t, o.GenerateScripts(ctx))

	variant := o.State().Generated.Variants[0]
	var preErr *PreconditionError
	err := o.GenerateSceneImage(ctx, variant.ID, variant.Script[0].ID)
	require.ErrorAs(t, err, &preErr)
	assert.Contains(t, preErr.Reason, "reference sheet")
}

func TestComposeFinalGridGatedOnAllRows(t *testing.T) {
	o := newTestOrchestrator(newFakeBackend())
	variant := runThroughScripts(t, o)
	ctx := context.Background()

	var preErr *PreconditionError
	err := o.ComposeFinalGrid(ctx, variant.ID)
	require.ErrorAs(t, err, &preErr)

	require.NoError(t, o.GenerateAllVisuals(ctx, variant.ID))
	require.NoError(t, o.ComposeFinalGrid(ctx, variant.ID))
	assert.NotEmpty(t, o.State().Generated.FinalGrid)
}

func TestUpdateRowRebuildsOnlyAffectedPath(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(backend)
	o.SetConfiguration(model.Configuration{SceneCount: 3, VariantCount: 2})
	ctx := context.Background()

	o.SetReferenceVideo(asset("ref.mp4", "video/mp4"))
	require.NoError(t, o.AnalyzeVideo(ctx))
	o.ToggleFeature("Waterproof")
	require.NoError(t, o.GenerateScripts(ctx))

	before := o.State().Generated
	target := before.Variants[0]
	visual := "hand-edited visual"
	require.NoError(t, o.UpdateRow(target.ID, target.Script[1].ID, RowPatch{Visual: &visual}))

	after := o.State().Generated
	assert.Equal(t, "hand-edited visual", after.Variants[0].Script[1].Visual)
	// The sibling variant and sibling rows keep their identity.
	assert.Same(t, before.Variants[1], after.Variants[1])
	assert.Same(t, before.Variants[0].Script[0], after.Variants[0].Script[0])
	assert.Same(t, before.Variants[0].Script[2], after.Variants[0].Script[2])
	// The original row value is untouched.
	assert.NotEqual(t, "hand-edited visual", before.Variants[0].Script[1].Visual)
}

func TestRegenerateRowKeepsIdentityAndVisual(t *testing.T) {
	o := newTestOrchestrator(newFakeBackend())
	variant := runThroughScripts(t, o)
	ctx := context.Background()

	require.NoError(t, o.GenerateSceneImage(ctx, variant.ID, variant.Script[0].ID))
	rendered := o.State().Generated.Variants[0].Script[0].GeneratedVisual
	require.NotEmpty(t, rendered)

	require.NoError(t, o.RegenerateRow(ctx, variant.ID, variant.Script[0].ID))

	row := o.State().Generated.Variants[0].Script[0]
	assert.Equal(t, variant.Script[0].ID, row.ID)
	assert.Equal(t, variant.Script[0].Timeframe, row.Timeframe)
	assert.Equal(t, "rewritten scene 1", row.Visual)
	assert.Equal(t, rendered, row.GeneratedVisual)
	assert.False(t, row.IsRegenerating)
}

func TestRegenerateRowFailureReportsUnderScriptsStage(t *testing.T) {
	backend := newFakeBackend()
	backend.failRegenerate = true
	o := newTestOrchestrator(backend)
	variant := runThroughScripts(t, o)

	err := o.RegenerateRow(context.Background(), variant.ID, variant.Script[0].ID)
	require.Error(t, err)

	state := o.State()
	assert.Contains(t, state.StageErrors, StageScripts)
	assert.NotContains(t, state.StageErrors, StageVisuals)
	assert.False(t, state.Generated.Variants[0].Script[0].IsRegenerating)
}

func TestHistorySnapshotIndependence(t *testing.T) {
	o := newTestOrchestrator(newFakeBackend())
	variant := runThroughScripts(t, o)

	item, err := o.SaveToHistory()
	require.NoError(t, err)
	savedVisual := item.GeneratedContent.Variants[0].Script[0].Visual

	// Edit working state after the save.
	edited := "changed after save"
	require.NoError(t, o.UpdateRow(variant.ID, variant.Script[0].ID, RowPatch{Visual: &edited}))

	stored := o.History()
	require.Len(t, stored, 1)
	assert.Equal(t, savedVisual, stored[0].GeneratedContent.Variants[0].Script[0].Visual)

	// Restore, edit again, and confirm the snapshot still holds.
	require.NoError(t, o.RestoreHistory(stored[0].ID))
	restored := o.State().Generated.Variants[0]
	require.NoError(t, o.UpdateRow(restored.ID, restored.Script[0].ID, RowPatch{Visual: &edited}))
	assert.Equal(t, savedVisual, o.History()[0].GeneratedContent.Variants[0].Script[0].Visual)
}

func TestSaveToHistoryRequiresScripts(t *testing.T) {
	o := newTestOrchestrator(newFakeBackend())
	var preErr *PreconditionError
	_, err := o.SaveToHistory()
	require.ErrorAs(t, err, &preErr)
}

func TestEndToEndScenario(t *testing.T) {
	o := newTestOrchestrator(newFakeBackend())
	variant := runThroughScripts(t, o)
	ctx := context.Background()

	state := o.State()
	require.Len(t, state.Generated.Variants, 1)
	require.Len(t, state.Generated.Variants[0].Script, 3)

	// Storyboard composition stays gated until all three rows are rendered.
	var preErr *PreconditionError
	require.ErrorAs(t, o.ComposeFinalGrid(ctx, variant.ID), &preErr)

	require.NoError(t, o.GenerateAllVisuals(ctx, variant.ID))
	require.NoError(t, o.ComposeFinalGrid(ctx, variant.ID))
	assert.NotEmpty(t, o.State().Generated.FinalGrid)
}
