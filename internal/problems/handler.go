package problems

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairprep/backend/internal/apperr"
	"github.com/pairprep/backend/internal/middleware"
	"github.com/pairprep/backend/internal/models"
	"github.com/pairprep/backend/pkg/response"
)

// CreateRequest is the body for POST /problems.
type CreateRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Difficulty  string                  `json:"difficulty"`
	Examples    []models.ProblemExample `json:"examples"`
	Constraints []string                `json:"constraints"`
	StarterCode map[string]string       `json:"starter_code"`
}

var (
	errMissingFields     = apperr.Validation("missing_fields", "title, description, and difficulty are required")
	errInvalidDifficulty = apperr.Validation("invalid_difficulty", "difficulty must be one of easy, medium, hard")
)

// Handler handles problem HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a problems handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Create handles POST /problems.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := req.toProblem(middleware.MustCaller(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create problem", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// GetByID handles GET /problems/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, ErrProblemNotFound)
		return
	}
	p, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (req CreateRequest) toProblem(createdBy uuid.UUID) (*models.Problem, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" || strings.TrimSpace(req.Difficulty) == "" {
		return nil, errMissingFields
	}
	difficulty, ok := models.ParseDifficulty(req.Difficulty)
	if !ok {
		return nil, errInvalidDifficulty
	}
	p := &models.Problem{
		Title:       title,
		Description: description,
		Difficulty:  difficulty,
		Examples:    req.Examples,
		Constraints: req.Constraints,
		StarterCode: req.StarterCode,
		CreatedBy:   createdBy,
		IsCustom:    true,
	}
	if p.Examples == nil {
		p.Examples = []models.ProblemExample{}
	}
	if p.Constraints == nil {
		p.Constraints = []string{}
	}
	if p.StarterCode == nil {
		p.StarterCode = map[string]string{}
	}
	return p, nil
}
