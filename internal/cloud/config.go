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

// Package cloud defines the application configuration structures, loaded
// from TOML files, and the clients used to reach the Gemini API. Model
// definitions (name, sampling parameters, output format, rate limit) and
// the prompt templates for every pipeline stage are configuration, not
// code, so prompts can be tuned without a rebuild.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings relaxes the content safety thresholds for all harm
// categories. Product marketing inputs are trusted; an over-eager block on
// an ad script is a worse failure mode here than a permissive one.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// GenAIModel describes one Gemini model configuration. Text models set an
// output format of "application/json" and carry sampling parameters; image
// models set an aspect ratio instead.
type GenAIModel struct {
	Model              string  `toml:"model"`               // The Gemini model identifier (e.g. "gemini-3-flash-preview").
	SystemInstructions string  `toml:"system_instructions"` // Optional system prompt applied to every call.
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"` // Response MIME type, e.g. "application/json".
	AspectRatio        string  `toml:"aspect_ratio"`  // For image models, e.g. "9:16".
	RateLimit          int     `toml:"rate_limit"`    // Requests per second allowed for this model.
}

// PromptTemplates holds the Go text/template sources for every generation
// stage prompt.
type PromptTemplates struct {
	Analysis      string `toml:"analysis"`       // Structured reference-video breakdown.
	ProductGrid   string `toml:"product_grid"`   // White-background 3x3 reference sheet.
	Scripts       string `toml:"scripts"`        // User prompt for script generation.
	SceneImage    string `toml:"scene_image"`    // Single full-bleed scene frame.
	RegenerateRow string `toml:"regenerate_row"` // Single script row rewrite.
}

// Retry configures the shared transient-failure retry policy. Only overload
// and unavailable signals are retried; the delay starts at BaseDelayMS and
// multiplies by Factor on each attempt.
type Retry struct {
	MaxAttempts int     `toml:"max_attempts"`
	BaseDelayMS int     `toml:"base_delay_ms"`
	Factor      float64 `toml:"factor"`
}

// Pipeline holds the orchestration knobs that are policy, not incident:
// the bounded concurrency of the batch visual stage and the paths of the
// ffmpeg binaries used for frame capture.
type Pipeline struct {
	VisualWorkers int    `toml:"visual_workers"` // Concurrent scene-image generations in the batch stage. 1 respects rate limits.
	FFmpegPath    string `toml:"ffmpeg_path"`
	FFprobePath   string `toml:"ffprobe_path"`
	HistoryCap    int    `toml:"history_cap"` // Max history snapshots retained; 0 means unbounded.
}

// Config is the root configuration aggregate, loaded from TOML files.
type Config struct {
	Application struct {
		Name            string `toml:"name"`
		GoogleProjectId string `toml:"google_project_id"` // Used only for telemetry export.
		APIKeyEnv       string `toml:"api_key_env"`       // Name of the env var holding the Gemini API key.
	} `toml:"application"`
	Pipeline        Pipeline              `toml:"pipeline"`
	Retry           Retry                 `toml:"retry"`
	PromptTemplates PromptTemplates       `toml:"prompt_templates"`
	AgentModels     map[string]GenAIModel `toml:"agent_models"`
}

// NewConfig creates a Config with initialized maps and the retry and
// pipeline defaults the reference workflow uses.
func NewConfig() *Config {
	cfg := &Config{AgentModels: make(map[string]GenAIModel)}
	cfg.Application.APIKeyEnv = "GEMINI_API_KEY"
	cfg.Retry = Retry{MaxAttempts: 5, BaseDelayMS: 1000, Factor: 2.0}
	cfg.Pipeline = Pipeline{VisualWorkers: 1, FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
	return cfg
}
