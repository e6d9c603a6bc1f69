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

package genclient

import (
	"fmt"
	"strings"
	"text/template"
)

// Default prompt sources. The TOML config can override any of these under
// [prompt_templates]; an empty config entry falls back to the default so a
// minimal config file still runs the full pipeline.
const (
	defaultAnalysisPrompt = `You are a TikTok marketing analyst. Analyze this reference video for a product marketing campaign.

Break the video into its distinct scenes. For each scene report the start
and end offsets in seconds, a category from [{{.Categories}}], a concise
visual description, the verbatim transcript (use "[Music]" when nothing is
spoken), and a Simplified Chinese translation of the transcript.

Also extract the key product selling points the video communicates, each
with a Simplified Chinese translation, and describe the video's overall
visual style, editing pacing, and color grade.

Example scene object:
{{.ExampleScene}}

Example extracted feature:
{{.ExampleFeature}}`

	defaultProductGridPrompt = `Create a single 9:16 product reference sheet image.

Arrange the product from the attached photos in a 3x3 grid on a pure white
studio background. Each of the nine cells shows the same product from a
different angle or distance: front, back, left, right, top, a 45-degree
hero angle, a macro detail shot, an in-hand scale shot, and a full view.
Keep the product photorealistic and identical across cells. No text, no
watermarks, no humans.

Product: {{.Description}}`

	defaultScriptsPrompt = `Write {{.VariantCount}} distinct TikTok marketing video script variants for this product. Each variant is a different creative strategy and must be named.

Product: {{.Description}}

Reference video breakdown:
{{.AnalysisContext}}

Selling points to emphasize:
{{range .Features}}- {{.}}
{{end}}
Constraints:
- Each variant has exactly {{.SceneCount}} scenes covering {{.DurationSeconds}} seconds total, with contiguous timeframes like "0-3s".
- Spoken lines ("audio") are in {{.Language}}; every visual and audio field carries a Simplified Chinese translation.
- One consistent on-screen persona per variant; the "style" voice tag of every row starts with that persona's gender.
- Match the reference video's visual style ({{.VisualStyle}}), pacing ({{.Pacing}}) and color grade ({{.ColorGrade}}).
- Each variant ends with a motion prompt: a single English paragraph directing camera and narrative for the whole video, plus its Simplified Chinese translation.

Example script row object:
{{.ExampleRow}}

The attached image is the product reference sheet; every scene must feature this exact product.`

	defaultSceneImagePrompt = `Generate one photorealistic 9:16 vertical video frame.

Scene: {{.Visual}}
Shot type: {{.ShotType}}
Camera movement to imply: {{.Movement}}
Lighting: {{.Lighting}}
Style: {{.Style}}

Use the attached reference sheet as the exact product to depict. The frame
is full-bleed with no borders, text overlays or watermarks.`

	defaultRegenerateRowPrompt = `Rewrite one scene of a TikTok marketing script. Keep the product, persona and overall narrative, but produce a fresh take on this scene.

Script context:
{{.Context}}

Scene to rewrite (timeframe {{.Timeframe}}):
Visual: {{.Visual}}
Audio: {{.Audio}}

The new spoken line is in {{.Language}}. Return the replacement visual,
audio, style tag, shot type, camera movement and lighting, with Simplified
Chinese translations for the visual and audio fields.`
)

// promptSet holds the parsed templates for every generation stage.
type promptSet struct {
	analysis      *template.Template
	productGrid   *template.Template
	scripts       *template.Template
	sceneImage    *template.Template
	regenerateRow *template.Template
}

func parsePrompt(name, configured, fallback string) (*template.Template, error) {
	src := configured
	if strings.TrimSpace(src) == "" {
		src = fallback
	}
	tpl, err := template.New(name).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid %s prompt template: %w", name, err)
	}
	return tpl, nil
}

func renderPrompt(tpl *template.Template, data any) (string, error) {
	var out strings.Builder
	if err := tpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tpl.Name(), err)
	}
	return out.String(), nil
}
