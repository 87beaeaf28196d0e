package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type runnerFunc func(ctx context.Context, language, code string) (*Result, error)

func (f runnerFunc) Run(ctx context.Context, language, code string) (*Result, error) {
	return f(ctx, language, code)
}

func serve(t *testing.T, runner Runner, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/code/run", NewHandler(runner, zap.NewNop()).Run)
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/code/run", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Run(t *testing.T) {
	ok := runnerFunc(func(_ context.Context, language, code string) (*Result, error) {
		return &Result{Language: language, Stdout: "hi", Output: "hi", Success: true}, nil
	})

	w := serve(t, ok, map[string]string{"language": "python", "code": "print('hi')"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stdout":"hi"`)

	w = serve(t, ok, map[string]string{"language": "python"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, ok, map[string]string{"language": "python", "code": strings.Repeat("x", maxCodeBytes+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_RunErrors(t *testing.T) {
	unsupported := runnerFunc(func(context.Context, string, string) (*Result, error) {
		return nil, ErrUnsupportedLanguage
	})
	w := serve(t, unsupported, map[string]string{"language": "cobol", "code": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	down := runnerFunc(func(context.Context, string, string) (*Result, error) {
		return nil, errors.New("connection refused")
	})
	w = serve(t, down, map[string]string{"language": "python", "code": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
}
