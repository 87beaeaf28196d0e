package models

import (
	"time"

	"github.com/google/uuid"
)

// ProblemExample is one worked input/output pair shown with a problem.
type ProblemExample struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// Problem is a user-authored interview problem.
type Problem struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Difficulty  Difficulty        `json:"difficulty"`
	Examples    []ProblemExample  `json:"examples"`
	Constraints []string          `json:"constraints"`
	StarterCode map[string]string `json:"starter_code"`
	CreatedBy   uuid.UUID         `json:"created_by"`
	IsCustom    bool              `json:"is_custom"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
