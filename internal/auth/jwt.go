package auth

import (
	"context"
	"errors"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pairprep/backend/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the identity provider's bearer token claims. Subject is the external user id.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier validates identity provider tokens, either against the provider's
// JWKS (RS256) or a shared HS256 secret.
type Verifier struct {
	secret []byte
	jwks   *keyfunc.JWKS
	issuer string
}

// NewVerifier creates a token verifier. With a JWKS URL the key set is fetched
// now and refreshed in the background until ctx is done.
func NewVerifier(ctx context.Context, cfg config.AuthConfig, logger *zap.Logger) (*Verifier, error) {
	v := &Verifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
	if cfg.JWKSURL == "" {
		return v, nil
	}
	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("jwks refresh error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, err
	}
	v.jwks = jwks
	return v, nil
}

// NewHMACVerifier creates a verifier for HS256 tokens only.
func NewHMACVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates a token, returning its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	keyFunc := v.hmacKey
	if v.jwks != nil {
		keyFunc = v.jwks.Keyfunc
		opts = append(opts, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyFunc, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExternalID verifies a token and returns its subject.
func (v *Verifier) ExternalID(tokenString string) (string, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (v *Verifier) hmacKey(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	if len(v.secret) == 0 {
		return nil, ErrInvalidToken
	}
	return v.secret, nil
}
