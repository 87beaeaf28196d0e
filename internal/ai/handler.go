package ai

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pairprep/backend/pkg/response"
)

// AnalyzeRequest is the body for POST /ai/analyze.
type AnalyzeRequest struct {
	Code               string `json:"code"`
	Language           string `json:"language"`
	ProblemDescription string `json:"problemDescription"`
}

// HintRequest is the body for POST /ai/hint.
type HintRequest struct {
	Code               string `json:"code"`
	Language           string `json:"language"`
	ProblemDescription string `json:"problemDescription"`
}

// Handler handles generative review endpoints.
type Handler struct {
	gen    Generator
	logger *zap.Logger
}

// NewHandler creates an AI handler. gen may be nil, which disables the endpoints.
func NewHandler(gen Generator, logger *zap.Logger) *Handler {
	return &Handler{gen: gen, logger: logger}
}

func (h *Handler) enabled(c *gin.Context) bool {
	if h.gen == nil {
		response.ServiceUnavailable(c, "ai review is not configured")
		return false
	}
	return true
}

// Analyze handles POST /ai/analyze.
func (h *Handler) Analyze(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Language) == "" {
		response.BadRequest(c, "code and language are required")
		return
	}

	text, err := h.gen.Generate(c.Request.Context(), ReviewPrompt(req.Language, req.ProblemDescription, req.Code))
	if err != nil {
		h.generateFailed(c, err)
		return
	}
	review, err := ParseReview(text)
	if err != nil {
		h.logger.Warn("unparsable ai review", zap.Error(err), zap.Int("raw_len", len(text)))
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "failed to parse AI response", "code": "ai_unparsable", "raw": text})
		return
	}
	response.OK(c, review)
}

// Hint handles POST /ai/hint.
func (h *Handler) Hint(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	var req HintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ProblemDescription) == "" {
		response.BadRequest(c, "problemDescription is required")
		return
	}
	text, err := h.gen.Generate(c.Request.Context(), HintPrompt(req.Language, req.ProblemDescription, req.Code))
	if err != nil {
		h.generateFailed(c, err)
		return
	}
	response.OK(c, gin.H{"hint": CleanHint(text)})
}

func (h *Handler) generateFailed(c *gin.Context, err error) {
	if errors.Is(err, ErrDisabled) {
		response.ServiceUnavailable(c, "ai review is not configured")
		return
	}
	h.logger.Error("ai generate failed", zap.Error(err))
	response.ServiceUnavailable(c, "ai service unavailable")
}
