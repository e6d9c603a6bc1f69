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

// Package model defines the core data structures for a campaign generation
// session: the media supplied by the user, the structured result of the
// reference-video analysis, the generated script variants, and the
// configuration knobs that steer generation.
//
// All of these values live in memory for the duration of a session. History
// snapshots require value independence, so every aggregate carries a Clone
// method that produces a deep copy sharing no mutable references with the
// original.
package model

import (
	"fmt"
	"time"
)

// Language is the target spoken language for generated scripts.
type Language string

const (
	LanguageEnglish Language = "English"
	LanguageSpanish Language = "Spanish"
)

// Duration is the target length class of the generated video. Each class
// maps to a fixed seconds budget the script must fit exactly.
type Duration string

const (
	DurationShort Duration = "15 Seconds"
	DurationLong  Duration = "25 Seconds"
)

// Seconds returns the seconds budget for the duration class. Unknown values
// fall back to the short budget.
func (d Duration) Seconds() int {
	if d == DurationLong {
		return 25
	}
	return 15
}

// SceneCategory tags a detected shot with its role in the marketing arc.
type SceneCategory string

const (
	CategoryProductInfo SceneCategory = "Product Info"
	CategoryUsage       SceneCategory = "Usage"
	CategoryBenefits    SceneCategory = "Benefits"
	CategoryHook        SceneCategory = "Hook"
	CategoryCTA         SceneCategory = "CTA"
	CategoryOther       SceneCategory = "Other"
)

// SceneCategories lists every valid category tag, in the order presented to
// the generation model's output schema.
func SceneCategories() []SceneCategory {
	return []SceneCategory{
		CategoryProductInfo,
		CategoryUsage,
		CategoryBenefits,
		CategoryHook,
		CategoryCTA,
		CategoryOther,
	}
}

// IsValid reports whether c is one of the fixed category tags.
func (c SceneCategory) IsValid() bool {
	for _, known := range SceneCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// Bounds for the generation configuration. The scene count steers how many
// rows each script variant carries; the variant count is capped by how many
// distinct scripts one generation call is asked to produce.
const (
	DefaultSceneCount = 5
	MinSceneCount     = 2
	MaxSceneCount     = 10
	MinVariantCount   = 1
	MaxVariantCount   = 3
)

// MediaPart is a pre-decoded binary prompt part (raw bytes plus MIME type).
// Decoding a file into a MediaPart is a caller responsibility; the
// generation client never touches file handles.
type MediaPart struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// MediaAsset is an immutable reference to user-supplied binary content plus
// a cached preview representation (data URL). The orchestrator state owns
// the asset; replacing or removing the state slot releases it.
type MediaAsset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
	Preview  string `json:"preview,omitempty"`
}

// Part returns the asset as a prompt part for the generation client.
func (m *MediaAsset) Part() MediaPart {
	return MediaPart{MIMEType: m.MIMEType, Data: m.Data}
}

// Clone returns a deep copy of the asset, including its payload bytes.
func (m *MediaAsset) Clone() *MediaAsset {
	if m == nil {
		return nil
	}
	out := *m
	out.Data = append([]byte(nil), m.Data...)
	return &out
}

// VideoScene is one detected shot of the reference video. StartTime and
// EndTime are derived mm:ss labels; RawStartTime and RawEndTime (seconds)
// are authoritative and used for frame seeking. The screenshot is attached
// lazily by the media codec after the structured analysis call returns.
type VideoScene struct {
	StartTime             string        `json:"startTime"`
	EndTime               string        `json:"endTime"`
	RawStartTime          float64       `json:"rawStartTime"`
	RawEndTime            float64       `json:"rawEndTime"`
	Category              SceneCategory `json:"category"`
	Description           string        `json:"description"`
	TranscriptOriginal    string        `json:"transcriptOriginal"`
	TranscriptTranslation string        `json:"transcriptTranslation"`
	Screenshot            string        `json:"screenshot,omitempty"`
}

// FeatureItem is an extracted selling point. Immutable once produced by
// analysis.
type FeatureItem struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// VideoAnalysisResult aggregates everything extracted from one reference
// video. It is replaced wholesale on re-analysis and invalidated whenever
// the source video is replaced or removed.
type VideoAnalysisResult struct {
	Scenes      []*VideoScene `json:"scenes"`
	Features    []FeatureItem `json:"features"`
	VisualStyle string        `json:"visualStyle"`
	Pacing      string        `json:"pacing"`
	ColorGrade  string        `json:"colorGrade"`
}

// Clone returns a deep copy of the analysis result.
func (v *VideoAnalysisResult) Clone() *VideoAnalysisResult {
	if v == nil {
		return nil
	}
	out := &VideoAnalysisResult{
		VisualStyle: v.VisualStyle,
		Pacing:      v.Pacing,
		ColorGrade:  v.ColorGrade,
		Features:    append([]FeatureItem(nil), v.Features...),
	}
	out.Scenes = make([]*VideoScene, len(v.Scenes))
	for i, s := range v.Scenes {
		scene := *s
		out.Scenes[i] = &scene
	}
	return out
}

// ScriptRow is one shot of a script variant. Rows are mutable in place: a
// row can be independently regenerated (text) or re-rendered (image)
// without touching its siblings. GeneratedVisual holds a base64 JPEG once
// the scene image stage has run for this row.
type ScriptRow struct {
	ID                string `json:"id"`
	Timeframe         string `json:"timeframe"`
	Visual            string `json:"visual"`
	VisualTranslation string `json:"visualTranslation"`
	ShotType          string `json:"shotType"`
	Movement          string `json:"movement"`
	Lighting          string `json:"lighting"`
	Audio             string `json:"audio"`
	AudioTranslation  string `json:"audioTranslation"`
	Style             string `json:"style"`
	GeneratedVisual   string `json:"generatedVisual,omitempty"`
	IsRegenerating    bool   `json:"isRegenerating,omitempty"`
}

// ScriptVariant is one complete alternative script for the campaign. The
// row order is the timeline order and is never reordered. The motion prompt
// describes full-video camera and narrative direction for downstream video
// synthesis.
type ScriptVariant struct {
	ID                      string       `json:"id"`
	Name                    string       `json:"name"`
	Script                  []*ScriptRow `json:"script"`
	MotionPrompt            string       `json:"motionPrompt"`
	MotionPromptTranslation string       `json:"motionPromptTranslation"`
}

// Clone returns a deep copy of the variant and its rows.
func (v *ScriptVariant) Clone() *ScriptVariant {
	if v == nil {
		return nil
	}
	out := *v
	out.Script = make([]*ScriptRow, len(v.Script))
	for i, r := range v.Script {
		row := *r
		out.Script[i] = &row
	}
	return &out
}

// GeneratedContent aggregates the generated artifacts of a campaign: the
// product reference grid, the final composed storyboard, and the script
// variants. This is the unit saved to and restored from history.
type GeneratedContent struct {
	ProductReference string           `json:"productReference,omitempty"`
	FinalGrid        string           `json:"finalGrid,omitempty"`
	Variants         []*ScriptVariant `json:"variants"`
}

// Clone returns a deep copy of the generated content.
func (g *GeneratedContent) Clone() *GeneratedContent {
	if g == nil {
		return nil
	}
	out := &GeneratedContent{
		ProductReference: g.ProductReference,
		FinalGrid:        g.FinalGrid,
		Variants:         make([]*ScriptVariant, len(g.Variants)),
	}
	for i, v := range g.Variants {
		out.Variants[i] = v.Clone()
	}
	return out
}

// Configuration holds the generation parameters for one campaign run.
type Configuration struct {
	ProductDescription string   `json:"productDescription"`
	Language           Language `json:"language"`
	Duration           Duration `json:"duration"`
	SceneCount         int      `json:"sceneCount"`
	VariantCount       int      `json:"variantCount"`
}

// Normalize clamps the counts into their allowed ranges and fills zero
// values with defaults.
func (c *Configuration) Normalize() {
	if c.Language == "" {
		c.Language = LanguageEnglish
	}
	if c.Duration == "" {
		c.Duration = DurationShort
	}
	if c.SceneCount == 0 {
		c.SceneCount = DefaultSceneCount
	}
	c.SceneCount = min(max(c.SceneCount, MinSceneCount), MaxSceneCount)
	if c.VariantCount == 0 {
		c.VariantCount = MinVariantCount
	}
	c.VariantCount = min(max(c.VariantCount, MinVariantCount), MaxVariantCount)
}

// HistoryItem is a full snapshot of a completed campaign configuration and
// its artifacts. Append-only and never mutated after creation; restoring an
// item replaces working state wholesale with deep copies.
type HistoryItem struct {
	ID               string               `json:"id"`
	Timestamp        time.Time            `json:"timestamp"`
	ProductImages    []*MediaAsset        `json:"productImages"`
	ReferenceVideo   *MediaAsset          `json:"referenceVideo,omitempty"`
	VideoAnalysis    *VideoAnalysisResult `json:"videoAnalysis,omitempty"`
	SelectedFeatures []string             `json:"selectedFeatures"`
	Config           Configuration        `json:"config"`
	GeneratedContent *GeneratedContent    `json:"generatedContent"`
}

// Clone returns a deep copy of the snapshot.
func (h *HistoryItem) Clone() *HistoryItem {
	if h == nil {
		return nil
	}
	out := *h
	out.ProductImages = make([]*MediaAsset, len(h.ProductImages))
	for i, img := range h.ProductImages {
		out.ProductImages[i] = img.Clone()
	}
	out.ReferenceVideo = h.ReferenceVideo.Clone()
	out.VideoAnalysis = h.VideoAnalysis.Clone()
	out.SelectedFeatures = append([]string(nil), h.SelectedFeatures...)
	out.GeneratedContent = h.GeneratedContent.Clone()
	return &out
}

// FormatTimestamp renders a raw seconds offset as the mm:ss label used by
// scene time ranges.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
