package ai

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/pairprep/backend/config"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("ai: generative api is not configured")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	http   *resty.Client
	apiKey string
	model  string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiClient creates a Gemini client. It returns nil when no API key is set.
func NewGeminiClient(cfg config.GeminiConfig) *GeminiClient {
	if cfg.APIKey == "" {
		return nil
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "pairprep-backend/1.0").
		SetTimeout(cfg.Timeout)
	return &GeminiClient{http: client, apiKey: cfg.APIKey, model: cfg.Model}
}

// Enabled reports whether the client can be used.
func (g *GeminiClient) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// Generate sends a single-turn prompt and returns the concatenated text parts.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	var out generateResponse
	var apiErr apiError
	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", g.apiKey).
		SetBody(generateRequest{
			Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
			GenerationConfig: generationConfig{Temperature: 0.2},
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/" + url.PathEscape(g.model) + ":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return "", fmt.Errorf("gemini error (%d): %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return "", fmt.Errorf("gemini error (%d): %s", resp.StatusCode(), resp.String())
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
