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

// Package orchestrator is the stateful workflow controller of the campaign
// pipeline. It owns the single working-state value, exposes one method per
// user-triggered stage, enforces stage preconditions before any network
// call, and merges stage results back into state with copy-on-write
// semantics so concurrent readers never observe a half-written structure.
//
// Stage methods block their caller for the duration of the stage but mark
// the stage busy in state, so a concurrent trigger of the same stage is
// rejected while other stages stay available. A stage completion is merged
// only if the state it would populate has not been superseded in the
// meantime (video replaced, history restored); a stale result is discarded.
package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/cloud"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/genclient"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/history"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

// Generator is the slice of the generation client the orchestrator calls.
type Generator interface {
	GenerateProductGrid(ctx context.Context, images []model.MediaPart, productDescription string) (string, error)
	GenerateScripts(ctx context.Context, req genclient.ScriptRequest) ([]*model.ScriptVariant, error)
	GenerateSceneImage(ctx context.Context, row *model.ScriptRow, productReference model.MediaPart) (string, error)
	RegenerateRow(ctx context.Context, variant *model.ScriptVariant, row *model.ScriptRow, language model.Language) (*model.ScriptRow, error)
}

// Analyzer runs the reference-video analysis workflow.
type Analyzer interface {
	Analyze(ctx context.Context, video *model.MediaAsset) (*model.VideoAnalysisResult, error)
}

// Composer tiles scene images onto the final storyboard canvas.
type Composer interface {
	ComposeGrid(ctx context.Context, base64Images []string) (string, error)
}

// Stage identifies one user-triggered pipeline stage for busy flags and
// per-stage error messages.
type Stage string

const (
	StageAnalysis    Stage = "analysis"
	StageProductGrid Stage = "product-grid"
	StageScripts     Stage = "scripts"
	StageFinalGrid   Stage = "final-grid"
	StageVisuals     Stage = "visuals"
)

// PreconditionError reports a stage triggered before its dependency is
// ready. It is a boundary rejection, not a pipeline failure: nothing was
// attempted and no stage error is recorded.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func precondition(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// ErrStageBusy rejects a trigger of a stage that is already in flight.
var ErrStageBusy = errors.New("stage already in flight")

// ErrSuperseded reports that a stage completed successfully but its result
// was discarded because the state it targeted was replaced mid-flight.
var ErrSuperseded = errors.New("stage result superseded by a newer state")

// State is the working state of one campaign session. Values handed out by
// State() are snapshots: the orchestrator never mutates a published State
// in place, and callers must treat it as read-only.
type State struct {
	ProductImages    []*model.MediaAsset        `json:"productImages"`
	ReferenceVideo   *model.MediaAsset          `json:"referenceVideo,omitempty"`
	VideoAnalysis    *model.VideoAnalysisResult `json:"videoAnalysis,omitempty"`
	SelectedFeatures []string                   `json:"selectedFeatures"`
	Config           model.Configuration        `json:"config"`
	Generated        *model.GeneratedContent    `json:"generated,omitempty"`

	IsAnalyzing             bool `json:"isAnalyzing"`
	IsGeneratingProductGrid bool `json:"isGeneratingProductGrid"`
	IsGeneratingScripts     bool `json:"isGeneratingScripts"`
	IsComposingFinalGrid    bool `json:"isComposingFinalGrid"`
	IsGeneratingVisuals     bool `json:"isGeneratingVisuals"`

	// StageErrors holds the last user-facing error message per stage,
	// cleared when the stage is re-triggered.
	StageErrors map[Stage]string `json:"stageErrors"`
}

// shell returns a shallow structural copy of the state: the struct itself,
// the slice headers, and the error map are fresh, while the immutable
// substructures are shared. Mutators replace substructures along the
// affected path only.
func (s *State) shell() *State {
	next := *s
	next.ProductImages = append([]*model.MediaAsset(nil), s.ProductImages...)
	next.SelectedFeatures = append([]string(nil), s.SelectedFeatures...)
	next.StageErrors = make(map[Stage]string, len(s.StageErrors))
	for k, v := range s.StageErrors {
		next.StageErrors[k] = v
	}
	return &next
}

// Orchestrator serializes all state transitions of one campaign session.
type Orchestrator struct {
	mu    sync.Mutex
	state *State
	// epoch is bumped whenever working state is replaced wholesale (video
	// replaced or removed, history restored). In-flight stage completions
	// compare it to decide whether their result is still relevant.
	epoch uint64

	generator Generator
	analyzer  Analyzer
	composer  Composer
	history   *history.Store

	visualWorkers int
}

// Options carries the orchestrator's collaborators and policy knobs.
type Options struct {
	Generator Generator
	Analyzer  Analyzer
	Composer  Composer
	History   *history.Store
	// VisualWorkers bounds concurrent scene-image generations in the batch
	// stage. Values below 1 fall back to 1, the rate-limit-friendly default.
	VisualWorkers int
}

// New creates an orchestrator with empty working state.
func New(opts Options) *Orchestrator {
	workers := opts.VisualWorkers
	if workers < 1 {
		workers = 1
	}
	hist := opts.History
	if hist == nil {
		hist = history.NewStore(0)
	}
	cfg := model.Configuration{}
	cfg.Normalize()
	return &Orchestrator{
		state: &State{
			Config:      cfg,
			StageErrors: make(map[Stage]string),
		},
		generator:     opts.Generator,
		analyzer:      opts.Analyzer,
		composer:      opts.Composer,
		history:       hist,
		visualWorkers: workers,
	}
}

// State returns the current state snapshot.
func (o *Orchestrator) State() *State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) replace(next *State) {
	o.state = next
}

// --- media and configuration mutation ---

// AddProductImages appends uploaded product images to the session.
func (o *Orchestrator) AddProductImages(assets ...*model.MediaAsset) {
	o.mu.Lock()
	defer o.mu.Unlock()
	next := o.state.shell()
	next.ProductImages = append(next.ProductImages, assets...)
	o.replace(next)
}

// RemoveProductImage drops one product image by ID.
func (o *Orchestrator) RemoveProductImage(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	next := o.state.shell()
	kept := next.ProductImages[:0]
	for _, img := range next.ProductImages {
		if img.ID != id {
			kept = append(kept, img)
		}
	}
	next.ProductImages = kept
	o.replace(next)
}

// SetReferenceVideo installs a new reference video. Any prior analysis,
// feature selection and video-derived generated content is cleared: stale
// derived data must never be shown against a new source. An in-flight
// analysis of the old video will complete but its result is discarded.
func (o *Orchestrator) SetReferenceVideo(video *model.MediaAsset) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.epoch++
	next := o.state.shell()
	next.ReferenceVideo = video
	next.VideoAnalysis = nil
	next.SelectedFeatures = nil
	next.IsAnalyzing = false
	next.IsGeneratingScripts = false
	next.IsComposingFinalGrid = false
	next.IsGeneratingVisuals = false
	if next.Generated != nil {
		// The product reference sheet derives from the product images, not
		// the video, so it survives a video swap.
		next.Generated = &model.GeneratedContent{ProductReference: next.Generated.ProductReference}
	}
	o.replace(next)
}

// RemoveReferenceVideo clears the video slot with the same invalidation
// rules as replacing it.
func (o *Orchestrator) RemoveReferenceVideo() {
	o.SetReferenceVideo(nil)
}

// ToggleFeature flips one selling point in or out of the selection. Only
// features the video analysis actually produced are selectable; unknown
// text is ignored so the script gate cannot be satisfied with an invented
// feature.
func (o *Orchestrator) ToggleFeature(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	next := o.state.shell()
	for i, f := range next.SelectedFeatures {
		if f == text {
			next.SelectedFeatures = append(next.SelectedFeatures[:i], next.SelectedFeatures[i+1:]...)
			o.replace(next)
			return
		}
	}
	if !analyzedFeature(o.state.VideoAnalysis, text) {
		return
	}
	next.SelectedFeatures = append(next.SelectedFeatures, text)
	o.replace(next)
}

// analyzedFeature reports whether the analysis produced a feature with the
// given text.
func analyzedFeature(analysis *model.VideoAnalysisResult, text string) bool {
	if analysis == nil {
		return false
	}
	for _, f := range analysis.Features {
		if f.Text == text {
			return true
		}
	}
	return false
}

// SetConfiguration replaces the generation parameters, clamped to their
// allowed ranges.
func (o *Orchestrator) SetConfiguration(cfg model.Configuration) {
	cfg.Normalize()
	o.mu.Lock()
	defer o.mu.Unlock()
	next := o.state.shell()
	next.Config = cfg
	o.replace(next)
}

// --- stage helpers ---

// beginStage checks the stage's busy flag, flips it on, and clears the
// stage's previous error. The caller must hold no lock.
func (o *Orchestrator) beginStage(stage Stage, get func(*State) bool, set func(*State, bool), check func(*State) error) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if get(o.state) {
		return 0, fmt.Errorf("%s: %w", stage, ErrStageBusy)
	}
	if check != nil {
		if err := check(o.state); err != nil {
			return 0, err
		}
	}
	next := o.state.shell()
	set(next, true)
	delete(next.StageErrors, stage)
	o.replace(next)
	return o.epoch, nil
}

// endStage clears the stage's busy flag and either merges the result (same
// epoch) or discards it. On failure it records the user-facing message for
// the stage and nothing else: a failure in one stage never touches another
// stage's state.
func (o *Orchestrator) endStage(stage Stage, epoch uint64, set func(*State, bool), stageErr error, merge func(*State)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := o.state.shell()
	set(next, false)

	if epoch != o.epoch {
		o.replace(next)
		slog.Info("discarding superseded stage result", "stage", stage)
		return ErrSuperseded
	}
	if stageErr != nil {
		next.StageErrors[stage] = cloud.UserMessage(stageErr)
		o.replace(next)
		return stageErr
	}
	if merge != nil {
		merge(next)
	}
	o.replace(next)
	return nil
}

func (o *Orchestrator) generatedShell(s *State) *model.GeneratedContent {
	if s.Generated == nil {
		return &model.GeneratedContent{}
	}
	next := *s.Generated
	next.Variants = append([]*model.ScriptVariant(nil), s.Generated.Variants...)
	return &next
}

// --- pipeline stages ---

// AnalyzeVideo runs the reference-video analysis stage.
func (o *Orchestrator) AnalyzeVideo(ctx context.Context) error {
	var video *model.MediaAsset
	epoch, err := o.beginStage(StageAnalysis,
		func(s *State) bool { return s.IsAnalyzing },
		func(s *State, v bool) { s.IsAnalyzing = v },
		func(s *State) error {
			if s.ReferenceVideo == nil {
				return precondition("upload a reference video before analyzing")
			}
			video = s.ReferenceVideo
			return nil
		})
	if err != nil {
		return err
	}

	analysis, stageErr := o.analyzer.Analyze(ctx, video)
	return o.endStage(StageAnalysis, epoch,
		func(s *State, v bool) { s.IsAnalyzing = v },
		stageErr,
		func(s *State) {
			s.VideoAnalysis = analysis
			// A fresh analysis brings a fresh feature list; the previous
			// selection no longer refers to it.
			s.SelectedFeatures = nil
		})
}

// GenerateProductGrid runs the product reference sheet stage.
func (o *Orchestrator) GenerateProductGrid(ctx context.Context) error {
	var parts []model.MediaPart
	var description string
	epoch, err := o.beginStage(StageProductGrid,
		func(s *State) bool { return s.IsGeneratingProductGrid },
		func(s *State, v bool) { s.IsGeneratingProductGrid = v },
		func(s *State) error {
			if len(s.ProductImages) == 0 {
				return precondition("upload at least one product image before generating the reference sheet")
			}
			for _, img := range s.ProductImages {
				parts = append(parts, img.Part())
			}
			description = s.Config.ProductDescription
			return nil
		})
	if err != nil {
		return err
	}

	grid, stageErr := o.generator.GenerateProductGrid(ctx, parts, description)
	return o.endStage(StageProductGrid, epoch,
		func(s *State, v bool) { s.IsGeneratingProductGrid = v },
		stageErr,
		func(s *State) {
			next := o.generatedShell(s)
			next.ProductReference = grid
			s.Generated = next
		})
}

// GenerateScripts runs the script variant stage. It requires a completed
// analysis and at least one selected feature; this is a workflow gate, not
// a generation-client concern.
func (o *Orchestrator) GenerateScripts(ctx context.Context) error {
	var req genclient.ScriptRequest
	epoch, err := o.beginStage(StageScripts,
		func(s *State) bool { return s.IsGeneratingScripts },
		func(s *State, v bool) { s.IsGeneratingScripts = v },
		func(s *State) error {
			if s.VideoAnalysis == nil {
				return precondition("analyze the reference video before generating scripts")
			}
			if len(s.SelectedFeatures) == 0 {
				return precondition("select at least one feature before generating scripts")
			}
			req = genclient.ScriptRequest{
				ProductDescription: s.Config.ProductDescription,
				Analysis:           s.VideoAnalysis,
				SelectedFeatures:   s.SelectedFeatures,
				Language:           s.Config.Language,
				Duration:           s.Config.Duration,
				SceneCount:         s.Config.SceneCount,
				VariantCount:       s.Config.VariantCount,
			}
			if s.Generated != nil && s.Generated.ProductReference != "" {
				part, err := referencePart(s.Generated.ProductReference)
				if err != nil {
					return &cloud.LocalError{Op: "decode-product-reference", Err: err}
				}
				req.ProductReference = part
			}
			return nil
		})
	if err != nil {
		return err
	}

	variants, stageErr := o.generator.GenerateScripts(ctx, req)
	return o.endStage(StageScripts, epoch,
		func(s *State, v bool) { s.IsGeneratingScripts = v },
		stageErr,
		func(s *State) {
			next := o.generatedShell(s)
			next.Variants = variants
			// A new script set invalidates the previous storyboard.
			next.FinalGrid = ""
			s.Generated = next
		})
}

// GenerateSceneImage renders the image for one script row. The row's
// transient busy flag is set for the duration; siblings stay untouched.
func (o *Orchestrator) GenerateSceneImage(ctx context.Context, variantID, rowID string) error {
	return o.rowStage(ctx, StageVisuals, variantID, rowID, func(ctx context.Context, _ *model.ScriptVariant, row *model.ScriptRow, reference model.MediaPart) (*model.ScriptRow, error) {
		image, err := o.generator.GenerateSceneImage(ctx, row, reference)
		if err != nil {
			return nil, err
		}
		next := *row
		next.GeneratedVisual = image
		return &next, nil
	}, true)
}

// RegenerateRow rewrites one script row's text fields in place, keeping
// its identity, timeframe and any rendered visual.
func (o *Orchestrator) RegenerateRow(ctx context.Context, variantID, rowID string) error {
	language := o.State().Config.Language
	return o.rowStage(ctx, StageScripts, variantID, rowID, func(ctx context.Context, variant *model.ScriptVariant, row *model.ScriptRow, _ model.MediaPart) (*model.ScriptRow, error) {
		return o.generator.RegenerateRow(ctx, variant, row, language)
	}, false)
}

// rowStage is the shared skeleton of the two per-row operations: resolve
// the row, mark it busy, run the operation, and merge the replacement row
// back by ID with a path-only copy-on-write rebuild. Failures are recorded
// under the stage that owns the operation.
func (o *Orchestrator) rowStage(
	ctx context.Context,
	stage Stage,
	variantID, rowID string,
	op func(ctx context.Context, variant *model.ScriptVariant, row *model.ScriptRow, reference model.MediaPart) (*model.ScriptRow, error),
	needsReference bool,
) error {
	o.mu.Lock()
	variantIdx, rowIdx, found := findRow(o.state.Generated, variantID, rowID)
	if !found {
		o.mu.Unlock()
		return precondition("script row not found")
	}
	variant := o.state.Generated.Variants[variantIdx]
	row := variant.Script[rowIdx]
	if row.IsRegenerating {
		o.mu.Unlock()
		return fmt.Errorf("row %s: %w", rowID, ErrStageBusy)
	}

	var reference model.MediaPart
	if needsReference {
		if o.state.Generated.ProductReference == "" {
			o.mu.Unlock()
			return precondition("generate the product reference sheet before rendering scene images")
		}
		part, err := referencePart(o.state.Generated.ProductReference)
		if err != nil {
			o.mu.Unlock()
			return &cloud.LocalError{Op: "decode-product-reference", Err: err}
		}
		reference = part
	}

	epoch := o.epoch
	busy := *row
	busy.IsRegenerating = true
	next := o.state.shell()
	next.Generated = replaceRow(o.state.Generated, variantIdx, rowIdx, &busy)
	o.replace(next)
	o.mu.Unlock()

	replacement, opErr := op(ctx, variant, row, reference)

	o.mu.Lock()
	defer o.mu.Unlock()

	vi, ri, stillThere := findRow(o.state.Generated, variantID, rowID)
	if !stillThere || epoch != o.epoch {
		slog.Info("discarding superseded row result", "variant", variantID, "row", rowID)
		if stillThere {
			cleared := *o.state.Generated.Variants[vi].Script[ri]
			cleared.IsRegenerating = false
			final := o.state.shell()
			final.Generated = replaceRow(o.state.Generated, vi, ri, &cleared)
			o.replace(final)
		}
		return ErrSuperseded
	}

	final := o.state.shell()
	if opErr != nil {
		cleared := *o.state.Generated.Variants[vi].Script[ri]
		cleared.IsRegenerating = false
		final.Generated = replaceRow(o.state.Generated, vi, ri, &cleared)
		final.StageErrors[stage] = cloud.UserMessage(opErr)
		o.replace(final)
		return opErr
	}

	merged := *replacement
	merged.IsRegenerating = false
	final.Generated = replaceRow(o.state.Generated, vi, ri, &merged)
	o.replace(final)
	return nil
}

// RowPatch is a partial update of one script row's editable text fields.
// Nil fields are left unchanged.
type RowPatch struct {
	Visual            *string `json:"visual"`
	VisualTranslation *string `json:"visualTranslation"`
	ShotType          *string `json:"shotType"`
	Movement          *string `json:"movement"`
	Lighting          *string `json:"lighting"`
	Audio             *string `json:"audio"`
	AudioTranslation  *string `json:"audioTranslation"`
	Style             *string `json:"style"`
}

// UpdateRow applies a manual edit to exactly one row, rebuilding only the
// affected variant/script path. Sibling rows and variants keep their
// identity.
func (o *Orchestrator) UpdateRow(variantID, rowID string, patch RowPatch) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	vi, ri, found := findRow(o.state.Generated, variantID, rowID)
	if !found {
		return precondition("script row not found")
	}

	next := *o.state.Generated.Variants[vi].Script[ri]
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&next.Visual, patch.Visual)
	apply(&next.VisualTranslation, patch.VisualTranslation)
	apply(&next.ShotType, patch.ShotType)
	apply(&next.Movement, patch.Movement)
	apply(&next.Lighting, patch.Lighting)
	apply(&next.Audio, patch.Audio)
	apply(&next.AudioTranslation, patch.AudioTranslation)
	apply(&next.Style, patch.Style)

	state := o.state.shell()
	state.Generated = replaceRow(o.state.Generated, vi, ri, &next)
	o.replace(state)
	return nil
}

// GenerateAllVisuals renders scene images for every row of one variant
// that does not have one yet, in script order, with bounded concurrency.
// One row's failure does not stop the remaining rows; the first error is
// reported after all rows were attempted.
func (o *Orchestrator) GenerateAllVisuals(ctx context.Context, variantID string) error {
	// The pending row IDs are snapshotted inside the begin check, under the
	// same lock that flips the busy flag, so the variant cannot vanish
	// between the gate and the snapshot.
	var pending []string
	epoch, err := o.beginStage(StageVisuals,
		func(s *State) bool { return s.IsGeneratingVisuals },
		func(s *State, v bool) { s.IsGeneratingVisuals = v },
		func(s *State) error {
			if s.Generated == nil || s.Generated.ProductReference == "" {
				return precondition("generate the product reference sheet before rendering scene images")
			}
			vi, ok := findVariant(s.Generated, variantID)
			if !ok {
				return precondition("script variant not found")
			}
			for _, row := range s.Generated.Variants[vi].Script {
				if row.GeneratedVisual == "" {
					pending = append(pending, row.ID)
				}
			}
			return nil
		})
	if err != nil {
		return err
	}

	sem := make(chan struct{}, o.visualWorkers)
	var wg sync.WaitGroup
	errs := make([]error, len(pending))
	for i, rowID := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rowID string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := o.GenerateSceneImage(ctx, variantID, rowID); err != nil {
				slog.Warn("scene image generation failed", "variant", variantID, "row", rowID, "error", err)
				errs[i] = err
			}
		}(i, rowID)
	}
	wg.Wait()

	return o.endStage(StageVisuals, epoch,
		func(s *State, v bool) { s.IsGeneratingVisuals = v },
		errors.Join(errs...),
		nil)
}

// ComposeFinalGrid tiles the variant's scene images onto the storyboard
// canvas. Every row must already have a generated image.
func (o *Orchestrator) ComposeFinalGrid(ctx context.Context, variantID string) error {
	var images []string
	epoch, err := o.beginStage(StageFinalGrid,
		func(s *State) bool { return s.IsComposingFinalGrid },
		func(s *State, v bool) { s.IsComposingFinalGrid = v },
		func(s *State) error {
			vi, ok := findVariant(s.Generated, variantID)
			if !ok {
				return precondition("script variant not found")
			}
			for _, row := range s.Generated.Variants[vi].Script {
				if row.GeneratedVisual == "" {
					return precondition("every scene needs a generated image before composing the storyboard")
				}
				images = append(images, row.GeneratedVisual)
			}
			return nil
		})
	if err != nil {
		return err
	}

	grid, stageErr := o.composer.ComposeGrid(ctx, images)
	return o.endStage(StageFinalGrid, epoch,
		func(s *State, v bool) { s.IsComposingFinalGrid = v },
		stageErr,
		func(s *State) {
			next := o.generatedShell(s)
			next.FinalGrid = grid
			s.Generated = next
		})
}

// --- history ---

// SaveToHistory snapshots the session into the history log and returns the
// stored snapshot.
func (o *Orchestrator) SaveToHistory() (*model.HistoryItem, error) {
	o.mu.Lock()
	item := &model.HistoryItem{
		ProductImages:    o.state.ProductImages,
		ReferenceVideo:   o.state.ReferenceVideo,
		VideoAnalysis:    o.state.VideoAnalysis,
		SelectedFeatures: o.state.SelectedFeatures,
		Config:           o.state.Config,
		GeneratedContent: o.state.Generated,
	}
	if item.GeneratedContent == nil || len(item.GeneratedContent.Variants) == 0 {
		o.mu.Unlock()
		return nil, precondition("generate scripts before saving to history")
	}
	o.mu.Unlock()

	// Append clones the snapshot, so the working state pointers above are
	// never shared with the stored item.
	return o.history.Append(item), nil
}

// History returns the stored snapshots, newest first.
func (o *Orchestrator) History() []*model.HistoryItem {
	return o.history.Items()
}

// RestoreHistory replaces the working state wholesale with a deep copy of
// the stored snapshot. Busy flags reset and in-flight stage results are
// discarded when they land.
func (o *Orchestrator) RestoreHistory(id string) error {
	item, ok := o.history.Get(id)
	if !ok {
		return precondition("history item not found")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.epoch++
	o.replace(&State{
		ProductImages:    item.ProductImages,
		ReferenceVideo:   item.ReferenceVideo,
		VideoAnalysis:    item.VideoAnalysis,
		SelectedFeatures: item.SelectedFeatures,
		Config:           item.Config,
		Generated:        item.GeneratedContent,
		StageErrors:      make(map[Stage]string),
	})
	return nil
}

// --- lookup helpers ---

func findVariant(content *model.GeneratedContent, variantID string) (int, bool) {
	if content == nil {
		return 0, false
	}
	for i, v := range content.Variants {
		if v.ID == variantID {
			return i, true
		}
	}
	return 0, false
}

func findRow(content *model.GeneratedContent, variantID, rowID string) (int, int, bool) {
	vi, ok := findVariant(content, variantID)
	if !ok {
		return 0, 0, false
	}
	for ri, row := range content.Variants[vi].Script {
		if row.ID == rowID {
			return vi, ri, true
		}
	}
	return 0, 0, false
}

// replaceRow rebuilds only the path content → variant → script → row,
// leaving every sibling pointer identical.
func replaceRow(content *model.GeneratedContent, variantIdx, rowIdx int, row *model.ScriptRow) *model.GeneratedContent {
	next := *content
	next.Variants = append([]*model.ScriptVariant(nil), content.Variants...)
	variant := *content.Variants[variantIdx]
	variant.Script = append([]*model.ScriptRow(nil), variant.Script...)
	variant.Script[rowIdx] = row
	next.Variants[variantIdx] = &variant
	return &next
}

func referencePart(b64 string) (model.MediaPart, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return model.MediaPart{}, fmt.Errorf("invalid product reference image: %w", err)
	}
	return model.MediaPart{MIMEType: "image/jpeg", Data: data}, nil
}
