package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairprep/backend/config"
)

func TestNewGeminiClient_DisabledWithoutKey(t *testing.T) {
	c := NewGeminiClient(config.GeminiConfig{})
	assert.Nil(t, c)
	assert.False(t, c.Enabled())
	_, err := c.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestGeminiClient_Generate(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"summary\":"},{"text":"\"ok\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(config.GeminiConfig{APIKey: "k", BaseURL: srv.URL, Model: "gemini-flash-latest", Timeout: time.Second})
	text, err := c.Generate(context.Background(), "review this")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, text)
	assert.Equal(t, "/gemini-flash-latest:generateContent", gotPath)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "review this", gotPrompt)
}

func TestGeminiClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(config.GeminiConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: time.Second})
	_, err := c.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
