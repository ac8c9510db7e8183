// Package llm structures extracted text into Markdown through one of a
// closed set of provider APIs. The provider set is small and fixed, so
// request shaping is a switch per variant rather than open dispatch.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/doc2md/doc2md/internal/core/domain"
	"github.com/doc2md/doc2md/internal/infrastructure/httpengine"
)

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
)

type Config struct {
	Provider     domain.Provider
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string

	AnthropicVersion   string
	AnthropicMaxTokens int
}

// ConfigFromProfile resolves a profile into a callable configuration,
// filling in per-provider default endpoints and models. An
// openai-compatible profile must carry its own base URL since there is no
// sensible default for a relay.
func ConfigFromProfile(profile domain.ProviderProfile, systemPrompt, anthropicVersion string, anthropicMaxTokens int) (Config, error) {
	if strings.TrimSpace(profile.APIKey) == "" {
		return Config{}, domain.WrapError(domain.ErrConfigMissing, "resolve llm config",
			fmt.Errorf("profile %q has no API key", profile.Name))
	}

	baseURL := strings.TrimRight(strings.TrimSpace(profile.BaseURL), "/")
	if baseURL == "" {
		switch profile.Provider {
		case domain.ProviderOpenAI:
			baseURL = defaultOpenAIBaseURL
		case domain.ProviderAnthropic:
			baseURL = defaultAnthropicBaseURL
		case domain.ProviderGemini:
			baseURL = defaultGeminiBaseURL
		case domain.ProviderOpenAICompatible:
			return Config{}, domain.WrapError(domain.ErrConfigMissing, "resolve llm config",
				errors.New("base URL is required for an openai-compatible provider"))
		}
	}

	model := strings.TrimSpace(profile.Model)
	if model == "" {
		switch profile.Provider {
		case domain.ProviderAnthropic:
			model = "claude-sonnet-4-5"
		case domain.ProviderGemini:
			model = "gemini-2.0-flash"
		default:
			model = "gpt-4o-mini"
		}
	}

	return Config{
		Provider:           profile.Provider,
		APIKey:             profile.APIKey,
		BaseURL:            baseURL,
		Model:              model,
		SystemPrompt:       systemPrompt,
		AnthropicVersion:   anthropicVersion,
		AnthropicMaxTokens: anthropicMaxTokens,
	}, nil
}

// Structurer is the TextStructurer implementation over the request engine.
type Structurer struct {
	engine *httpengine.Engine
	cfg    Config
}

func NewStructurer(engine *httpengine.Engine, cfg Config) *Structurer {
	return &Structurer{engine: engine, cfg: cfg}
}

func (s *Structurer) ToMarkdown(ctx context.Context, text, traceID string) (string, error) {
	userPrompt := buildUserPrompt(text)

	switch s.cfg.Provider {
	case domain.ProviderOpenAI, domain.ProviderOpenAICompatible:
		return s.callOpenAICompatible(ctx, userPrompt, traceID)
	case domain.ProviderAnthropic:
		return s.callAnthropic(ctx, userPrompt, traceID)
	case domain.ProviderGemini:
		return s.callGemini(ctx, userPrompt, traceID)
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "structure text",
			fmt.Errorf("unsupported provider %q", s.cfg.Provider))
	}
}

func (s *Structurer) callOpenAICompatible(ctx context.Context, userPrompt, traceID string) (string, error) {
	payload := map[string]any{
		"model":       s.cfg.Model,
		"temperature": 0.1,
		"messages": []map[string]any{
			{"role": "system", "content": s.cfg.SystemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}

	raw, err := s.engine.PostJSON(ctx, "llm_openai_compatible", s.cfg.BaseURL+"/chat/completions",
		bearerHeader(s.cfg.APIKey), payload, traceID)
	if err != nil {
		return "", err
	}

	content, ok := ExtractOpenAIContent(raw)
	if !ok {
		return "", domain.WrapError(domain.ErrAPIContract, "llm_openai_compatible",
			errors.New("missing choices[0].message.content in response"))
	}
	return content, nil
}

func (s *Structurer) callAnthropic(ctx context.Context, userPrompt, traceID string) (string, error) {
	payload := map[string]any{
		"model":      s.cfg.Model,
		"max_tokens": s.cfg.AnthropicMaxTokens,
		"system":     s.cfg.SystemPrompt,
		"messages": []map[string]any{
			{"role": "user", "content": userPrompt},
		},
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("x-api-key", s.cfg.APIKey)
	header.Set("anthropic-version", s.cfg.AnthropicVersion)

	raw, err := s.engine.PostJSON(ctx, "llm_anthropic", s.cfg.BaseURL+"/messages", header, payload, traceID)
	if err != nil {
		return "", err
	}

	content, ok := parseAnthropicContent(raw)
	if !ok {
		return "", domain.WrapError(domain.ErrAPIContract, "llm_anthropic",
			errors.New("missing content text in response"))
	}
	return content, nil
}

func (s *Structurer) callGemini(ctx context.Context, userPrompt, traceID string) (string, error) {
	// Gemini has no separate system role in this API; prompts are merged.
	merged := s.cfg.SystemPrompt + "\n\n" + userPrompt
	payload := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]any{{"text": merged}},
			},
		},
		"generationConfig": map[string]any{
			"temperature": 0.1,
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		s.cfg.BaseURL, s.cfg.Model, url.QueryEscape(s.cfg.APIKey))

	raw, err := s.engine.PostJSON(ctx, "llm_gemini", endpoint, jsonHeader(), payload, traceID)
	if err != nil {
		return "", err
	}

	content, ok := parseGeminiContent(raw)
	if !ok {
		return "", domain.WrapError(domain.ErrAPIContract, "llm_gemini",
			errors.New("missing candidate content parts in response"))
	}
	return content, nil
}

func buildUserPrompt(text string) string {
	return "Rewrite the following extracted text as structured Markdown.\n\n--- OCR START ---\n" +
		text + "\n--- OCR END ---"
}

func bearerHeader(apiKey string) http.Header {
	header := jsonHeader()
	header.Set("Authorization", "Bearer "+apiKey)
	return header
}

func jsonHeader() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return header
}
