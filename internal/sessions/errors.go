package sessions

import (
	"errors"

	"github.com/pairprep/backend/internal/apperr"
)

var (
	ErrMissingProblem    = apperr.Validation("missing_problem", "problem and difficulty are required")
	ErrInvalidDifficulty = apperr.Validation("invalid_difficulty", "difficulty must be one of easy, medium, hard")
	ErrUnknownProblem    = apperr.Validation("unknown_custom_problem", "custom problem does not exist")
	ErrCallIDCollision   = &apperr.Error{Kind: apperr.KindConflict, Code: "call_id_collision", Message: "could not allocate a unique call id, retry", Retryable: true}

	ErrSessionNotFound         = apperr.NotFound("session_not_found", "session not found")
	ErrSessionNotActive        = apperr.Validation("session_not_active", "cannot join a non-active session")
	ErrHostCannotJoin          = apperr.Validation("host_cannot_join", "host cannot join own session")
	ErrSessionFull             = apperr.Conflict("session_full", "session is full")
	ErrNotHost                 = apperr.Forbidden("not_host", "only the host can end the session")
	ErrNotMember               = apperr.Forbidden("not_member", "only the host or participant can access this session")
	ErrSessionAlreadyCompleted = apperr.Validation("session_already_completed", "session is already completed")
	ErrRealtimeTeardown        = apperr.External("realtime_teardown_failed", "could not release the call and chat channel; the session is still active, retry ending it", nil)
	ErrCredentials             = apperr.External("credentials_unavailable", "could not issue call credentials", nil)
)

// Store-level conditions. These never reach clients directly.
var (
	// ErrDuplicateCallID is returned by Store.Create when call_id is already taken.
	ErrDuplicateCallID = errors.New("sessions: duplicate call id")
	// ErrStaleState is returned by conditional updates whose guard no longer holds.
	ErrStaleState = errors.New("sessions: state changed")
)
