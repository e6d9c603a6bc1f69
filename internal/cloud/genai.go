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

// Gemini client construction and the quota-aware model wrapper.
//
// The API credential is an explicit constructor input resolved once at
// startup; no package reads a process-wide ambient key. Each configured
// model is wrapped in a rate limiter so the pipeline cannot exceed the
// per-model request quota, and exposes text and image helpers that apply
// the shared retry policy and record token usage metrics.
package cloud

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ServiceClients is the dependency container for everything that talks to
// the Gemini API. One instance is created at startup and shared.
type ServiceClients struct {
	GenAIClient *genai.Client
	AgentModels map[string]*QuotaAwareGenerativeAIModel
}

// NewCloudServiceClients initializes the Gemini client with the supplied
// API key and wraps every configured agent model. The key is passed in by
// the caller; resolving it (env var, key picker, secret store) is not this
// package's concern.
func NewCloudServiceClients(ctx context.Context, config *Config, apiKey string) (*ServiceClients, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no API key supplied; set %s or pass a key explicitly", config.Application.APIKeyEnv)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %w", err)
	}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for key, values := range config.AgentModels {
		cfg := &genai.GenerateContentConfig{
			SafetySettings: DefaultSafetySettings,
		}
		if values.OutputFormat != "" {
			cfg.ResponseMIMEType = values.OutputFormat
		}
		if values.SystemInstructions != "" {
			cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
		}
		if values.Temperature > 0 {
			cfg.Temperature = genai.Ptr[float32](values.Temperature)
		}
		if values.TopP > 0 {
			cfg.TopP = genai.Ptr[float32](values.TopP)
		}
		if values.TopK > 0 {
			cfg.TopK = genai.Ptr[float32](values.TopK)
		}
		if values.MaxTokens > 0 {
			cfg.MaxOutputTokens = values.MaxTokens
		}
		if values.AspectRatio != "" {
			cfg.ImageConfig = &genai.ImageConfig{AspectRatio: values.AspectRatio}
			cfg.ResponseModalities = []string{"TEXT", "IMAGE"}
		}
		agentModels[key] = NewQuotaAwareModel(cfg, values.Model, gc.Models, values.RateLimit)
	}

	return &ServiceClients{GenAIClient: gc, AgentModels: agentModels}, nil
}

// QuotaAwareGenerativeAIModel decorates a configured Gemini model with a
// token-bucket rate limiter and per-model usage counters.
type QuotaAwareGenerativeAIModel struct {
	GenerateConfig *genai.GenerateContentConfig
	ModelName      string
	ModelHandle    *genai.Models
	Limiter        *rate.Limiter

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewQuotaAwareModel wraps the model configuration with a limiter that
// allows requestsPerSecond sustained calls with an equal burst.
func NewQuotaAwareModel(cfg *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	meter := otel.Meter("github.com/YishanCoding/TikTok-Viral-Video-Architect")
	q := &QuotaAwareGenerativeAIModel{
		GenerateConfig: cfg,
		ModelName:      name,
		ModelHandle:    handle,
		Limiter:        rate.NewLimiter(rate.Every(time.Second/time.Duration(requestsPerSecond)), requestsPerSecond),
	}
	q.inputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.input", name))
	q.outputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.output", name))
	q.retryCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.retry", name))
	return q
}

// GenerateContent waits for a rate-limit token and issues one request. No
// retries happen at this layer; the retry policy wraps this method so the
// limiter is consulted on every attempt.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	return q.generate(ctx, contents, q.GenerateConfig)
}

func (q *QuotaAwareGenerativeAIModel) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := q.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, contents, cfg)
	if err != nil {
		return nil, err
	}
	if resp.UsageMetadata != nil {
		q.inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		q.outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}
	return resp, nil
}

// GenerateText issues a request under the retry policy and returns the
// concatenated text of the response, with any markdown JSON fencing
// stripped. An empty response is a contract failure.
func (q *QuotaAwareGenerativeAIModel) GenerateText(ctx context.Context, backoff *Backoff, contents []*genai.Content) (string, error) {
	return q.generateText(ctx, backoff, contents, q.GenerateConfig)
}

// GenerateJSON is GenerateText with a per-call structured-output schema.
// The model's configured sampling parameters are kept; only the response
// schema differs between pipeline stages sharing a model.
func (q *QuotaAwareGenerativeAIModel) GenerateJSON(ctx context.Context, backoff *Backoff, contents []*genai.Content, schema *genai.Schema) (string, error) {
	cfg := *q.GenerateConfig
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = schema
	return q.generateText(ctx, backoff, contents, &cfg)
}

func (q *QuotaAwareGenerativeAIModel) generateText(ctx context.Context, backoff *Backoff, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	var resp *genai.GenerateContentResponse
	attempt := 0
	err := backoff.Retry(ctx, func(ctx context.Context) error {
		if attempt > 0 {
			q.retryCounter.Add(ctx, 1)
		}
		attempt++
		var callErr error
		resp, callErr = q.generate(ctx, contents, cfg)
		return callErr
	})
	if err != nil {
		return "", err
	}

	var value strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			value.WriteString(part.Text)
		}
	}
	out := strings.TrimSpace(value.String())
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimSuffix(out, "```")
	if strings.TrimSpace(out) == "" {
		return "", NewContractError("model returned an empty response")
	}
	return out, nil
}

// GenerateImage issues a request under the retry policy and returns the
// first inline image of the response as base64. A response with no image
// part is a contract failure; when the model explains itself in text, that
// refusal is surfaced verbatim.
func (q *QuotaAwareGenerativeAIModel) GenerateImage(ctx context.Context, backoff *Backoff, contents []*genai.Content) (string, error) {
	var resp *genai.GenerateContentResponse
	attempt := 0
	err := backoff.Retry(ctx, func(ctx context.Context) error {
		if attempt > 0 {
			q.retryCounter.Add(ctx, 1)
		}
		attempt++
		var callErr error
		resp, callErr = q.GenerateContent(ctx, contents)
		return callErr
	})
	if err != nil {
		return "", err
	}

	var refusal string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
			}
			if part.Text != "" {
				refusal = part.Text
			}
		}
	}
	if refusal != "" {
		return "", NewContractError("no image generated: %s", strings.TrimSpace(refusal))
	}
	return "", NewContractError("no image generated by the model")
}

// NewUserContent assembles a single-turn user message from binary parts
// and a trailing text prompt, the shape every pipeline stage sends.
func NewUserContent(parts []*genai.Part, prompt string) []*genai.Content {
	all := append(append([]*genai.Part{}, parts...), &genai.Part{Text: prompt})
	return []*genai.Content{{Role: "user", Parts: all}}
}
