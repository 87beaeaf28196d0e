package execution

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pairprep/backend/pkg/response"
)

// maxCodeBytes bounds submitted programs.
const maxCodeBytes = 64 << 10

// Runner executes programs.
type Runner interface {
	Run(ctx context.Context, language, code string) (*Result, error)
}

// RunRequest is the body for POST /code/run.
type RunRequest struct {
	Language string `json:"language" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// Handler handles code execution endpoints.
type Handler struct {
	runner Runner
	logger *zap.Logger
}

// NewHandler creates a code execution handler.
func NewHandler(runner Runner, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// Run handles POST /code/run.
func (h *Handler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.Code) > maxCodeBytes {
		response.BadRequest(c, "code is too large")
		return
	}
	res, err := h.runner.Run(c.Request.Context(), strings.TrimSpace(req.Language), req.Code)
	if err != nil {
		if errors.Is(err, ErrUnsupportedLanguage) {
			response.BadRequest(c, "unsupported language: "+req.Language)
			return
		}
		h.logger.Error("code execution failed", zap.String("language", req.Language), zap.Error(err))
		response.ServiceUnavailable(c, "code execution service unavailable")
		return
	}
	response.OK(c, res)
}
