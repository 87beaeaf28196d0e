package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pairprep/backend/internal/middleware"
	"github.com/pairprep/backend/pkg/response"
)

// Handler handles account HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Me handles GET /auth/me. Returns the caller's public profile.
func (h *Handler) Me(c *gin.Context) {
	caller := middleware.MustCaller(c)
	user, err := h.repo.GetByID(c.Request.Context(), caller.UserID)
	if err != nil {
		h.logger.Warn("load caller profile", zap.String("user_id", caller.UserID.String()), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, user.ToPublic())
}
