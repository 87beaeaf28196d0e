package sessions

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pairprep/backend/internal/middleware"
	"github.com/pairprep/backend/pkg/response"
)

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Problem         string `json:"problem"`
	Difficulty      string `json:"difficulty"`
	CustomProblemID string `json:"custom_problem_id" binding:"omitempty,uuid"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a session handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the session routes on an authenticated group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("", h.Create)
	g.GET("/active", h.ListActive)
	g.GET("/my-recent", h.ListRecent)
	g.GET("/:id", h.GetByID)
	g.POST("/:id/join", h.Join)
	g.POST("/:id/end", h.End)
	g.GET("/:id/credentials", h.Credentials)
}

// Create handles POST /sessions.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	in := CreateInput{Problem: req.Problem, Difficulty: req.Difficulty}
	if req.CustomProblemID != "" {
		id := uuid.MustParse(req.CustomProblemID)
		in.CustomProblemID = &id
	}
	sess, err := h.svc.Create(c.Request.Context(), middleware.MustCaller(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sess)
}

// ListActive handles GET /sessions/active.
func (h *Handler) ListActive(c *gin.Context) {
	list, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ListRecent handles GET /sessions/my-recent.
func (h *Handler) ListRecent(c *gin.Context) {
	list, err := h.svc.ListRecent(c.Request.Context(), middleware.MustCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /sessions/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	view, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Join handles POST /sessions/:id/join.
func (h *Handler) Join(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.svc.Join(c.Request.Context(), id, middleware.MustCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// End handles POST /sessions/:id/end (host only).
func (h *Handler) End(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.svc.End(c.Request.Context(), id, middleware.MustCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// Credentials handles GET /sessions/:id/credentials (host or participant).
func (h *Handler) Credentials(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	creds, err := h.svc.Credentials(c.Request.Context(), id, middleware.MustCaller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, creds)
}

// sessionID parses :id. An unparsable id cannot name a session, so it is a 404.
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, ErrSessionNotFound)
		return uuid.Nil, false
	}
	return id, true
}
