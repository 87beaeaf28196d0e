package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pairprep/backend/internal/apperr"
	"github.com/pairprep/backend/internal/models"
	"github.com/pairprep/backend/pkg/response"
)

const (
	// ContextUserID is the key for the internal user ID in gin context.
	ContextUserID = "user_id"
	// ContextExternalID is the key for the identity provider's user id.
	ContextExternalID = "external_id"
	// ContextCaller is the key for the resolved models.Caller.
	ContextCaller = "caller"
)

// TokenVerifier returns the external user id carried by a bearer token.
type TokenVerifier interface {
	ExternalID(token string) (string, error)
}

// UserResolver maps an external id onto the local user.
type UserResolver interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// Authenticate validates the bearer token and resolves the caller's internal identity.
// Tokens for users that were never synced are rejected.
func Authenticate(verifier TokenVerifier, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		externalID, err := verifier.ExternalID(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		user, err := users.GetByExternalID(c.Request.Context(), externalID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				response.Unauthorized(c, "unknown user")
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		caller := models.Caller{UserID: user.ID, ExternalID: user.ExternalID, Name: user.Name}
		c.Set(ContextUserID, user.ID)
		c.Set(ContextExternalID, user.ExternalID)
		c.Set(ContextCaller, caller)
		c.Next()
	}
}

// CallerFrom returns the caller set by Authenticate.
func CallerFrom(c *gin.Context) (models.Caller, bool) {
	v, ok := c.Get(ContextCaller)
	if !ok {
		return models.Caller{}, false
	}
	caller, ok := v.(models.Caller)
	return caller, ok && caller.UserID != uuid.Nil
}

// MustCaller returns the caller set by Authenticate and panics without one.
func MustCaller(c *gin.Context) models.Caller {
	return c.MustGet(ContextCaller).(models.Caller)
}
