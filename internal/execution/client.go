package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/pairprep/backend/config"
)

// ErrUnsupportedLanguage is returned when no runtime matches the requested language.
var ErrUnsupportedLanguage = errors.New("execution: unsupported language")

// Runtime is one language runtime offered by Piston.
type Runtime struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases"`
}

// Result is the outcome of running a program.
type Result struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
	Success  bool   `json:"success"`
}

type file struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type executeRequest struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Files    []file `json:"files"`
}

type stage struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Output string `json:"output"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
}

type executeResponse struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Run      stage  `json:"run"`
	Compile  *stage `json:"compile"`
	Message  string `json:"message"`
}

var seededRuntimes = map[string]Runtime{
	"javascript": {Language: "javascript", Version: "18.15.0"},
	"python":     {Language: "python", Version: "3.10.0"},
	"java":       {Language: "java", Version: "15.0.2"},
}

var languageAliases = map[string]string{
	"js":       "javascript",
	"node":     "javascript",
	"node.js":  "javascript",
	"c++":      "cpp",
	"c#":       "csharp",
	"c sharp":  "csharp",
	"f#":       "fsharp",
	"ts":       "typescript",
	"ts-node":  "typescript",
	"py":       "python",
	"python3":  "python",
	"golang":   "go",
}

var extensions = map[string]string{
	"javascript": "js",
	"typescript": "ts",
	"python":     "py",
	"java":       "java",
	"cpp":        "cpp",
	"c":          "c",
	"csharp":     "cs",
	"go":         "go",
	"rust":       "rs",
	"php":        "php",
	"ruby":       "rb",
	"kotlin":     "kt",
	"swift":      "swift",
	"r":          "r",
	"dart":       "dart",
	"haskell":    "hs",
	"scala":      "scala",
	"perl":       "pl",
}

// NormalizeLanguage maps common aliases onto Piston language names.
func NormalizeLanguage(language string) string {
	raw := strings.ToLower(strings.TrimSpace(language))
	if alias, ok := languageAliases[raw]; ok {
		return alias
	}
	return raw
}

// FileName returns the source file name Piston compiles for language.
func FileName(language string) string {
	ext, ok := extensions[NormalizeLanguage(language)]
	if !ok {
		ext = "txt"
	}
	return "main." + ext
}

// Client runs code on a Piston instance. Resolved runtimes are cached for the
// lifetime of the client.
type Client struct {
	http *resty.Client

	mu       sync.Mutex
	resolved map[string]Runtime
	runtimes []Runtime
}

// NewClient creates a Piston client.
func NewClient(cfg config.PistonConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", "pairprep-backend/1.0").
		SetTimeout(cfg.Timeout)
	resolved := make(map[string]Runtime, len(seededRuntimes))
	for k, v := range seededRuntimes {
		resolved[k] = v
	}
	return &Client{http: client, resolved: resolved}
}

// Resolve finds the runtime for language, loading /runtimes on first miss.
func (c *Client) Resolve(ctx context.Context, language string) (Runtime, error) {
	normalized := NormalizeLanguage(language)
	c.mu.Lock()
	defer c.mu.Unlock()
	if rt, ok := c.resolved[normalized]; ok {
		return rt, nil
	}
	if c.runtimes == nil {
		var list []Runtime
		resp, err := c.http.R().SetContext(ctx).SetResult(&list).Get("/runtimes")
		if err != nil {
			return Runtime{}, fmt.Errorf("piston runtimes request failed: %w", err)
		}
		if resp.IsError() {
			return Runtime{}, fmt.Errorf("piston runtimes error (%d): %s", resp.StatusCode(), resp.String())
		}
		c.runtimes = list
	}
	for _, rt := range c.runtimes {
		if matches(rt, normalized) {
			c.resolved[normalized] = rt
			return rt, nil
		}
	}
	return Runtime{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
}

func matches(rt Runtime, language string) bool {
	if strings.EqualFold(rt.Language, language) {
		return true
	}
	for _, a := range rt.Aliases {
		if strings.EqualFold(a, language) {
			return true
		}
	}
	return false
}

// Run executes code and returns its output. A non-empty stderr marks the run unsuccessful.
func (c *Client) Run(ctx context.Context, language, code string) (*Result, error) {
	rt, err := c.Resolve(ctx, language)
	if err != nil {
		return nil, err
	}
	var out executeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(executeRequest{
			Language: rt.Language,
			Version:  rt.Version,
			Files:    []file{{Name: FileName(language), Content: code}},
		}).
		SetResult(&out).
		Post("/execute")
	if err != nil {
		return nil, fmt.Errorf("piston execute request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("piston execute error (%d): %s", resp.StatusCode(), resp.String())
	}

	res := &Result{
		Language: rt.Language,
		Version:  rt.Version,
		Stdout:   out.Run.Stdout,
		Stderr:   out.Run.Stderr,
		Output:   out.Run.Output,
	}
	if out.Compile != nil && out.Compile.Code != nil && *out.Compile.Code != 0 {
		res.Stderr = out.Compile.Stderr
		res.Output = out.Compile.Output
		res.ExitCode = *out.Compile.Code
		return res, nil
	}
	if out.Run.Code != nil {
		res.ExitCode = *out.Run.Code
	}
	if res.Output == "" && res.Stderr == "" {
		res.Output = "No output"
	}
	res.Success = res.Stderr == "" && res.ExitCode == 0
	return res, nil
}
