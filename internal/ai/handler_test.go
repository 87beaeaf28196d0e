package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func router(gen Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(gen, zap.NewNop())
	r.POST("/ai/analyze", h.Analyze)
	r.POST("/ai/hint", h.Hint)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyze(t *testing.T) {
	gen := &stubGenerator{text: "```json\n{\"summary\":\"solid\",\"timeComplexity\":\"O(n)\"}\n```"}
	r := router(gen)

	w := postJSON(r, "/ai/analyze", AnalyzeRequest{Code: "x := 1", Language: "go", ProblemDescription: "Two Sum"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"summary":"solid"`)
	assert.Contains(t, gen.prompt, "Two Sum")
}

func TestAnalyze_Validation(t *testing.T) {
	r := router(&stubGenerator{})
	w := postJSON(r, "/ai/analyze", AnalyzeRequest{Code: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyze_UnparsableReturnsRaw(t *testing.T) {
	r := router(&stubGenerator{text: "I cannot review this."})
	w := postJSON(r, "/ai/analyze", AnalyzeRequest{Code: "x", Language: "go"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "I cannot review this.", body["raw"])
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	r := router(&stubGenerator{err: errors.New("timeout")})
	w := postJSON(r, "/ai/analyze", AnalyzeRequest{Code: "x", Language: "go"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDisabled(t *testing.T) {
	r := router(nil)
	w := postJSON(r, "/ai/analyze", AnalyzeRequest{Code: "x", Language: "go"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = postJSON(r, "/ai/hint", HintRequest{ProblemDescription: "p"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHint(t *testing.T) {
	r := router(&stubGenerator{text: "\"Consider a hash map.\""})
	w := postJSON(r, "/ai/hint", HintRequest{ProblemDescription: "Two Sum", Language: "python"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hint":"Consider a hash map."`)

	w = postJSON(r, "/ai/hint", HintRequest{Code: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
