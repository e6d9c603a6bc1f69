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

// Package genclient is the typed facade over the Gemini models for every
// generation stage of the campaign pipeline: reference-video analysis,
// product reference sheet, script variants, per-scene images and
// single-row rewrites. It owns the prompt rendering, the structured-output
// schemas, and the translation of wire JSON into domain values; callers
// never see raw model responses.
package genclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/cloud"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

// Agent model keys in the [agent_models] configuration table.
const (
	AgentAnalysis       = "analysis"
	AgentScript         = "script"
	AgentReferenceImage = "image-reference"
	AgentSceneImage     = "image-scene"
)

// Client issues the generation calls of the campaign pipeline. It is safe
// for concurrent use; all mutable state lives in the per-model rate
// limiters and metric counters.
type Client struct {
	analysis  *cloud.QuotaAwareGenerativeAIModel
	script    *cloud.QuotaAwareGenerativeAIModel
	reference *cloud.QuotaAwareGenerativeAIModel
	scene     *cloud.QuotaAwareGenerativeAIModel

	backoff *cloud.Backoff
	prompts promptSet
}

// NewClient wires the configured agent models and prompt templates into a
// generation client. Every agent key must be present in the configuration.
func NewClient(config *cloud.Config, clients *cloud.ServiceClients) (*Client, error) {
	c := &Client{backoff: cloud.NewBackoff(config.Retry)}

	for _, binding := range []struct {
		key  string
		slot **cloud.QuotaAwareGenerativeAIModel
	}{
		{AgentAnalysis, &c.analysis},
		{AgentScript, &c.script},
		{AgentReferenceImage, &c.reference},
		{AgentSceneImage, &c.scene},
	} {
		m, ok := clients.AgentModels[binding.key]
		if !ok {
			return nil, fmt.Errorf("agent model %q is not configured", binding.key)
		}
		*binding.slot = m
	}

	var err error
	tpls := config.PromptTemplates
	if c.prompts.analysis, err = parsePrompt("analysis", tpls.Analysis, defaultAnalysisPrompt); err != nil {
		return nil, err
	}
	if c.prompts.productGrid, err = parsePrompt("product-grid", tpls.ProductGrid, defaultProductGridPrompt); err != nil {
		return nil, err
	}
	if c.prompts.scripts, err = parsePrompt("scripts", tpls.Scripts, defaultScriptsPrompt); err != nil {
		return nil, err
	}
	if c.prompts.sceneImage, err = parsePrompt("scene-image", tpls.SceneImage, defaultSceneImagePrompt); err != nil {
		return nil, err
	}
	if c.prompts.regenerateRow, err = parsePrompt("regenerate-row", tpls.RegenerateRow, defaultRegenerateRowPrompt); err != nil {
		return nil, err
	}
	return c, nil
}

func mediaParts(parts []model.MediaPart) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: p.Data}})
	}
	return out
}

// Wire shapes matching the structured-output schemas. These stay private
// to the package; the public surface speaks model types only.
type wireScene struct {
	StartTime             float64 `json:"start_time"`
	EndTime               float64 `json:"end_time"`
	Category              string  `json:"category"`
	Description           string  `json:"description"`
	TranscriptOriginal    string  `json:"transcript_original"`
	TranscriptTranslation string  `json:"transcript_translation"`
}

type wireFeature struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

type wireAnalysis struct {
	Scenes            []wireScene   `json:"scenes"`
	ExtractedFeatures []wireFeature `json:"extracted_features"`
	VisualStyle       string        `json:"visual_style"`
	Pacing            string        `json:"pacing"`
	ColorGrade        string        `json:"color_grade"`
}

type wireScriptRow struct {
	Timeframe         string `json:"timeframe"`
	Visual            string `json:"visual"`
	VisualTranslation string `json:"visual_translation"`
	ShotType          string `json:"shot_type"`
	CameraMovement    string `json:"camera_movement"`
	Lighting          string `json:"lighting"`
	Audio             string `json:"audio"`
	AudioTranslation  string `json:"audio_translation"`
	Style             string `json:"style"`
}

type wireVariant struct {
	Name                    string          `json:"name"`
	PersonaName             string          `json:"persona_name"`
	PersonaGender           string          `json:"persona_gender"`
	Script                  []wireScriptRow `json:"script"`
	MotionPrompt            string          `json:"motion_prompt"`
	MotionPromptTranslation string          `json:"motion_prompt_translation"`
}

type wireScriptsEnvelope struct {
	Variants []wireVariant `json:"variants"`
}

// Few-shot examples rendered into the prompts, in the exact wire shape the
// schema asks for. A concrete example next to the schema measurably
// improves structural reliability.

func exampleJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func exampleSceneJSON() string {
	s := model.GetExampleScene()
	return exampleJSON(wireScene{
		StartTime:             s.RawStartTime,
		EndTime:               s.RawEndTime,
		Category:              string(s.Category),
		Description:           s.Description,
		TranscriptOriginal:    s.TranscriptOriginal,
		TranscriptTranslation: s.TranscriptTranslation,
	})
}

func exampleFeatureJSON() string {
	f := model.GetExampleFeature()
	return exampleJSON(wireFeature{Text: f.Text, Translation: f.Translation})
}

func exampleRowJSON() string {
	r := model.GetExampleRow()
	return exampleJSON(wireScriptRow{
		Timeframe:         r.Timeframe,
		Visual:            r.Visual,
		VisualTranslation: r.VisualTranslation,
		ShotType:          r.ShotType,
		CameraMovement:    r.Movement,
		Lighting:          r.Lighting,
		Audio:             r.Audio,
		AudioTranslation:  r.AudioTranslation,
		Style:             r.Style,
	})
}

// AnalyzeVideo runs the structured breakdown of the reference video:
// scene list with timings and transcripts, extracted selling points, and
// the three global style descriptors. Screenshots are not attached here;
// that is the media codec's job once raw timings are known.
func (c *Client) AnalyzeVideo(ctx context.Context, video model.MediaPart) (*model.VideoAnalysisResult, error) {
	categories := sceneCategoryEnum()
	prompt, err := renderPrompt(c.prompts.analysis, struct {
		Categories     string
		ExampleScene   string
		ExampleFeature string
	}{strings.Join(categories, ", "), exampleSceneJSON(), exampleFeatureJSON()})
	if err != nil {
		return nil, err
	}

	raw, err := c.analysis.GenerateJSON(ctx, c.backoff, cloud.NewUserContent(mediaParts([]model.MediaPart{video}), prompt), analysisSchema())
	if err != nil {
		return nil, err
	}

	var envelope wireAnalysis
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, cloud.NewContractError("unparseable analysis response: %v", err)
	}
	return mapAnalysis(&envelope)
}

func mapAnalysis(envelope *wireAnalysis) (*model.VideoAnalysisResult, error) {
	if len(envelope.Scenes) == 0 {
		return nil, cloud.NewContractError("analysis returned no scenes")
	}
	out := &model.VideoAnalysisResult{
		VisualStyle: envelope.VisualStyle,
		Pacing:      envelope.Pacing,
		ColorGrade:  envelope.ColorGrade,
	}
	for i, s := range envelope.Scenes {
		category := model.SceneCategory(s.Category)
		if !category.IsValid() {
			return nil, cloud.NewContractError("scene %d has unknown category %q", i, s.Category)
		}
		if s.Description == "" {
			return nil, cloud.NewContractError("scene %d has no description", i)
		}
		if s.EndTime < s.StartTime {
			return nil, cloud.NewContractError("scene %d ends (%.2fs) before it starts (%.2fs)", i, s.EndTime, s.StartTime)
		}
		out.Scenes = append(out.Scenes, &model.VideoScene{
			StartTime:             model.FormatTimestamp(s.StartTime),
			EndTime:               model.FormatTimestamp(s.EndTime),
			RawStartTime:          s.StartTime,
			RawEndTime:            s.EndTime,
			Category:              category,
			Description:           s.Description,
			TranscriptOriginal:    s.TranscriptOriginal,
			TranscriptTranslation: s.TranscriptTranslation,
		})
	}
	for _, f := range envelope.ExtractedFeatures {
		if f.Text == "" {
			continue
		}
		out.Features = append(out.Features, model.FeatureItem{Text: f.Text, Translation: f.Translation})
	}
	return out, nil
}

// GenerateProductGrid produces the 3x3 white-background product reference
// sheet from the uploaded product photos. The result is a base64 JPEG.
func (c *Client) GenerateProductGrid(ctx context.Context, images []model.MediaPart, productDescription string) (string, error) {
	if len(images) == 0 {
		return "", cloud.NewContractError("no product images supplied")
	}
	prompt, err := renderPrompt(c.prompts.productGrid, struct{ Description string }{productDescription})
	if err != nil {
		return "", err
	}
	return c.reference.GenerateImage(ctx, c.backoff, cloud.NewUserContent(mediaParts(images), prompt))
}

// ScriptRequest carries everything the script generation call needs. The
// reference sheet is attached so every variant scripts the exact product.
type ScriptRequest struct {
	ProductReference   model.MediaPart
	ProductDescription string
	Analysis           *model.VideoAnalysisResult
	SelectedFeatures   []string
	Language           model.Language
	Duration           model.Duration
	SceneCount         int
	VariantCount       int
}

// GenerateScripts produces the requested number of script variants, each
// with exactly the requested number of rows. A response with a different
// variant count or a ragged script is rejected as a contract failure
// rather than padded or truncated.
func (c *Client) GenerateScripts(ctx context.Context, req ScriptRequest) ([]*model.ScriptVariant, error) {
	if req.Analysis == nil {
		return nil, cloud.NewContractError("script generation requires a completed video analysis")
	}
	if len(req.SelectedFeatures) == 0 {
		return nil, cloud.NewContractError("script generation requires at least one selected feature")
	}

	prompt, err := renderPrompt(c.prompts.scripts, struct {
		Description     string
		AnalysisContext string
		Features        []string
		SceneCount      int
		VariantCount    int
		Language        model.Language
		DurationSeconds int
		VisualStyle     string
		Pacing          string
		ColorGrade      string
		ExampleRow      string
	}{
		Description:     req.ProductDescription,
		AnalysisContext: analysisContext(req.Analysis),
		Features:        req.SelectedFeatures,
		SceneCount:      req.SceneCount,
		VariantCount:    req.VariantCount,
		Language:        req.Language,
		DurationSeconds: req.Duration.Seconds(),
		VisualStyle:     req.Analysis.VisualStyle,
		Pacing:          req.Analysis.Pacing,
		ColorGrade:      req.Analysis.ColorGrade,
		ExampleRow:      exampleRowJSON(),
	})
	if err != nil {
		return nil, err
	}

	// The reference sheet is optional; scripts can be drafted before the
	// grid has been generated.
	var parts []*genai.Part
	if len(req.ProductReference.Data) > 0 {
		parts = mediaParts([]model.MediaPart{req.ProductReference})
	}
	raw, err := c.script.GenerateJSON(ctx, c.backoff, cloud.NewUserContent(parts, prompt), scriptsSchema(req.VariantCount, req.SceneCount))
	if err != nil {
		return nil, err
	}

	var envelope wireScriptsEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, cloud.NewContractError("unparseable scripts response: %v", err)
	}
	return mapVariants(&envelope, req.VariantCount, req.SceneCount)
}

func mapVariants(envelope *wireScriptsEnvelope, variantCount, sceneCount int) ([]*model.ScriptVariant, error) {
	if len(envelope.Variants) != variantCount {
		return nil, cloud.NewContractError("expected %d script variants, got %d", variantCount, len(envelope.Variants))
	}
	out := make([]*model.ScriptVariant, 0, variantCount)
	for vi, wv := range envelope.Variants {
		if len(wv.Script) != sceneCount {
			return nil, cloud.NewContractError("variant %d has %d rows, expected %d", vi, len(wv.Script), sceneCount)
		}
		variant := &model.ScriptVariant{
			ID:                      uuid.NewString(),
			Name:                    wv.Name,
			MotionPrompt:            wv.MotionPrompt,
			MotionPromptTranslation: wv.MotionPromptTranslation,
		}
		for _, wr := range wv.Script {
			variant.Script = append(variant.Script, mapRow(&wr))
		}
		out = append(out, variant)
	}
	return out, nil
}

func mapRow(wr *wireScriptRow) *model.ScriptRow {
	return &model.ScriptRow{
		ID:                uuid.NewString(),
		Timeframe:         wr.Timeframe,
		Visual:            wr.Visual,
		VisualTranslation: wr.VisualTranslation,
		ShotType:          wr.ShotType,
		Movement:          wr.CameraMovement,
		Lighting:          wr.Lighting,
		Audio:             wr.Audio,
		AudioTranslation:  wr.AudioTranslation,
		Style:             wr.Style,
	}
}

// analysisContext flattens the analysis into the prompt block the script
// call reads: one line per scene plus the global descriptors.
func analysisContext(analysis *model.VideoAnalysisResult) string {
	var b strings.Builder
	for _, s := range analysis.Scenes {
		fmt.Fprintf(&b, "[%s-%s] %s: %s", s.StartTime, s.EndTime, s.Category, s.Description)
		if s.TranscriptOriginal != "" {
			fmt.Fprintf(&b, " (spoken: %s)", s.TranscriptOriginal)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// GenerateSceneImage renders one script row as a 9:16 frame, using the
// product reference sheet so the depicted product matches the grid.
func (c *Client) GenerateSceneImage(ctx context.Context, row *model.ScriptRow, productReference model.MediaPart) (string, error) {
	if row == nil {
		return "", cloud.NewContractError("no script row supplied")
	}
	prompt, err := renderPrompt(c.prompts.sceneImage, struct {
		Visual   string
		ShotType string
		Movement string
		Lighting string
		Style    string
	}{row.Visual, row.ShotType, row.Movement, row.Lighting, row.Style})
	if err != nil {
		return "", err
	}
	return c.scene.GenerateImage(ctx, c.backoff, cloud.NewUserContent(mediaParts([]model.MediaPart{productReference}), prompt))
}

// RegenerateRow rewrites one script row while keeping its identity, its
// timeframe and any already-rendered visual. The surrounding script is
// passed as context so the rewrite stays coherent with its neighbors.
func (c *Client) RegenerateRow(ctx context.Context, variant *model.ScriptVariant, row *model.ScriptRow, language model.Language) (*model.ScriptRow, error) {
	if variant == nil || row == nil {
		return nil, cloud.NewContractError("no script row supplied")
	}

	var contextBlock strings.Builder
	for _, r := range variant.Script {
		fmt.Fprintf(&contextBlock, "[%s] %s | %s\n", r.Timeframe, r.Visual, r.Audio)
	}

	prompt, err := renderPrompt(c.prompts.regenerateRow, struct {
		Context   string
		Timeframe string
		Visual    string
		Audio     string
		Language  model.Language
	}{strings.TrimSpace(contextBlock.String()), row.Timeframe, row.Visual, row.Audio, language})
	if err != nil {
		return nil, err
	}

	raw, err := c.script.GenerateJSON(ctx, c.backoff, cloud.NewUserContent(nil, prompt), rowSchema())
	if err != nil {
		return nil, err
	}

	var wr wireScriptRow
	if err := json.Unmarshal([]byte(raw), &wr); err != nil {
		return nil, cloud.NewContractError("unparseable row response: %v", err)
	}
	if wr.Visual == "" || wr.Audio == "" {
		return nil, cloud.NewContractError("row rewrite returned empty visual or audio")
	}

	out := mapRow(&wr)
	out.ID = row.ID
	out.Timeframe = row.Timeframe
	out.GeneratedVisual = row.GeneratedVisual
	return out, nil
}
