package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKindAndCode(t *testing.T) {
	sentinel := Conflict("session_full", "session is full")
	wrapped := fmt.Errorf("join: %w", sentinel.Wrap(errors.New("cas failed")))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, Conflict("other", "session is full")))
	assert.False(t, errors.Is(wrapped, NotFound("session_full", "x")))
}

func TestError_WrapDoesNotMutateSentinel(t *testing.T) {
	sentinel := NotFound("session_not_found", "session not found")
	_ = sentinel.Wrap(errors.New("boom"))
	assert.Nil(t, sentinel.Err)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("x", "y"), KindValidation},
		{"wrapped forbidden", fmt.Errorf("ctx: %w", Forbidden("x", "y")), KindForbidden},
		{"external", External("x", "y", errors.New("dial")), KindExternalService},
		{"foreign", errors.New("plain"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestExternal_IsRetryableAndUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	e := External("realtime_unavailable", "provider failed", cause)
	require.True(t, e.Retryable)
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "connection refused")
}
