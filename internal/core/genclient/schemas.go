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

// Structured-output schemas for the text generation calls. Every call
// declares field names, types, enumerations and required-ness explicitly;
// a response that fails these constraints is a contract failure, never
// silently defaulted.
package genclient

import (
	"google.golang.org/genai"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

func sceneCategoryEnum() []string {
	categories := model.SceneCategories()
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

// analysisSchema is the contract for the reference-video breakdown: a
// scene list, extracted selling points, and three global style
// descriptors. All scene fields are required so a partial scene is a
// parse failure, not a guess.
func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scenes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"start_time":             {Type: genai.TypeNumber, Description: "Scene start offset in seconds"},
						"end_time":               {Type: genai.TypeNumber, Description: "Scene end offset in seconds"},
						"category":               {Type: genai.TypeString, Enum: sceneCategoryEnum()},
						"description":            {Type: genai.TypeString, Description: "Visual description of the shot"},
						"transcript_original":    {Type: genai.TypeString, Description: "Verbatim spoken words; \"[Music]\" for silence or music"},
						"transcript_translation": {Type: genai.TypeString, Description: "Simplified Chinese translation of the transcript"},
					},
					Required: []string{"start_time", "end_time", "category", "description", "transcript_original", "transcript_translation"},
				},
			},
			"extracted_features": {
				Type:        genai.TypeArray,
				Description: "Key selling points identified in the video",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text":        {Type: genai.TypeString},
						"translation": {Type: genai.TypeString},
					},
					Required: []string{"text", "translation"},
				},
			},
			"visual_style": {Type: genai.TypeString, Description: "Overall visual style, e.g. \"High-Key Minimalist\""},
			"pacing":       {Type: genai.TypeString, Description: "Editing pacing, e.g. \"Fast-paced, energetic\""},
			"color_grade":  {Type: genai.TypeString, Description: "Color treatment, e.g. \"Warm Vintage\""},
		},
		Required: []string{"scenes", "extracted_features", "visual_style", "pacing", "color_grade"},
	}
}

// scriptRowProperties is shared by the full script schema and the
// single-row rewrite schema so both calls emit the same row shape.
func scriptRowProperties() map[string]*genai.Schema {
	return map[string]*genai.Schema{
		"timeframe":          {Type: genai.TypeString, Description: "Row time window, e.g. \"0-3s\""},
		"visual":             {Type: genai.TypeString, Description: "Scene description in English"},
		"visual_translation": {Type: genai.TypeString, Description: "Simplified Chinese translation of visual"},
		"shot_type":          {Type: genai.TypeString, Description: "e.g. \"Extreme Close-up\", \"Wide Angle\""},
		"camera_movement":    {Type: genai.TypeString, Description: "e.g. \"Slow Pan Right\", \"Handheld Shake\""},
		"lighting":           {Type: genai.TypeString, Description: "e.g. \"Golden Hour\", \"Studio Softbox\""},
		"audio":              {Type: genai.TypeString, Description: "Spoken line in the target language"},
		"audio_translation":  {Type: genai.TypeString, Description: "Simplified Chinese translation of audio"},
		"style":              {Type: genai.TypeString, Description: "Voice style tag; the first word must be the persona's gender"},
	}
}

func scriptRowRequired() []string {
	return []string{"timeframe", "visual", "visual_translation", "shot_type", "camera_movement", "lighting", "audio", "audio_translation", "style"}
}

// scriptsSchema is the contract for the multi-variant script call. The
// variant and row counts are pinned with MinItems/MaxItems so the model
// cannot return fewer variants than requested or a ragged script; the
// persona fields make the cross-row consistency constraint part of the
// contract rather than an unchecked prompt aside.
func scriptsSchema(variantCount, sceneCount int) *genai.Schema {
	vc := int64(variantCount)
	sc := int64(sceneCount)
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"variants": {
				Type:     genai.TypeArray,
				MinItems: genai.Ptr(vc),
				MaxItems: genai.Ptr(vc),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":           {Type: genai.TypeString, Description: "Short display name of this strategy"},
						"persona_name":   {Type: genai.TypeString, Description: "Name of the single on-screen persona used in every row"},
						"persona_gender": {Type: genai.TypeString, Enum: []string{"Female", "Male"}},
						"script": {
							Type:     genai.TypeArray,
							MinItems: genai.Ptr(sc),
							MaxItems: genai.Ptr(sc),
							Items: &genai.Schema{
								Type:       genai.TypeObject,
								Properties: scriptRowProperties(),
								Required:   scriptRowRequired(),
							},
						},
						"motion_prompt":             {Type: genai.TypeString, Description: "English full-video camera and narrative direction for video synthesis"},
						"motion_prompt_translation": {Type: genai.TypeString, Description: "Simplified Chinese translation of the motion prompt"},
					},
					Required: []string{"name", "persona_name", "persona_gender", "script", "motion_prompt", "motion_prompt_translation"},
				},
			},
		},
		Required: []string{"variants"},
	}
}

// rowSchema is the contract for the single-row rewrite call.
func rowSchema() *genai.Schema {
	props := scriptRowProperties()
	delete(props, "timeframe") // The timeframe is held fixed by the caller.
	required := make([]string, 0, len(props))
	for _, key := range scriptRowRequired() {
		if key != "timeframe" {
			required = append(required, key)
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   required,
	}
}
