package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairprep/backend/config"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"JS":        "javascript",
		"node.js":   "javascript",
		" C++ ":     "cpp",
		"c#":        "csharp",
		"C Sharp":   "csharp",
		"f#":        "fsharp",
		"ts-node":   "typescript",
		"python":    "python",
		"elixir":    "elixir",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLanguage(in), in)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "main.py", FileName("python"))
	assert.Equal(t, "main.js", FileName("node"))
	assert.Equal(t, "main.cs", FileName("c#"))
	assert.Equal(t, "main.txt", FileName("brainfuck"))
}

type piston struct {
	runtimeCalls atomic.Int32
	lastExecute  executeRequest
	reply        executeResponse
	status       int
}

func (p *piston) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/runtimes":
			p.runtimeCalls.Add(1)
			_ = json.NewEncoder(w).Encode([]Runtime{
				{Language: "go", Version: "1.16.2", Aliases: []string{"golang"}},
				{Language: "cpp", Version: "10.2.0", Aliases: []string{"g++"}},
			})
		case "/execute":
			if p.status != 0 {
				w.WriteHeader(p.status)
				_, _ = w.Write([]byte(`{"message":"boom"}`))
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&p.lastExecute)
			_ = json.NewEncoder(w).Encode(p.reply)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func intp(n int) *int { return &n }

func TestClient_RunSeededRuntime(t *testing.T) {
	p := &piston{reply: executeResponse{Run: stage{Stdout: "3\n", Output: "3\n", Code: intp(0)}}}
	srv := p.server(t)
	c := NewClient(config.PistonConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})

	res, err := c.Run(context.Background(), "py", "print(1+2)")
	require.NoError(t, err)
	assert.Equal(t, "3\n", res.Stdout)
	assert.True(t, res.Success)
	assert.Equal(t, int32(0), p.runtimeCalls.Load())
	assert.Equal(t, "python", p.lastExecute.Language)
	assert.Equal(t, "3.10.0", p.lastExecute.Version)
	require.Len(t, p.lastExecute.Files, 1)
	assert.Equal(t, "main.py", p.lastExecute.Files[0].Name)
}

func TestClient_ResolvesAndCachesRuntimes(t *testing.T) {
	p := &piston{reply: executeResponse{Run: stage{Code: intp(0)}}}
	srv := p.server(t)
	c := NewClient(config.PistonConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})

	res, err := c.Run(context.Background(), "c++", "int main(){}")
	require.NoError(t, err)
	assert.Equal(t, "No output", res.Output)
	assert.Equal(t, "10.2.0", p.lastExecute.Version)

	_, err = c.Run(context.Background(), "golang", "package main")
	require.NoError(t, err)
	assert.Equal(t, "go", p.lastExecute.Language)
	assert.Equal(t, int32(1), p.runtimeCalls.Load())

	_, err = c.Run(context.Background(), "cobol", "")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Equal(t, int32(1), p.runtimeCalls.Load())
}

func TestClient_CompileFailure(t *testing.T) {
	p := &piston{reply: executeResponse{
		Compile: &stage{Stderr: "error: expected ';'", Output: "error: expected ';'", Code: intp(1)},
		Run:     stage{Code: intp(0)},
	}}
	srv := p.server(t)
	c := NewClient(config.PistonConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})

	res, err := c.Run(context.Background(), "java", "class Main {")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stderr, "expected")
}

func TestClient_UpstreamError(t *testing.T) {
	p := &piston{status: http.StatusInternalServerError}
	srv := p.server(t)
	c := NewClient(config.PistonConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})

	_, err := c.Run(context.Background(), "javascript", "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedLanguage)
}
