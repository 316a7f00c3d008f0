// Package auth supplies the bearer token sent to the forensic backend.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"flowbot/internal/domain"
)

// TokenSource returns the bearer token for backend requests.
type TokenSource interface {
	Token() (string, error)
}

// Claims are the fields the backend puts into its access tokens.
type Claims struct {
	UserID    any    `json:"user_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// StaticTokenSource serves one configured access token. If the token is a
// JWT its expiry is inspected so an expired token fails before any request
// is sent. Signatures are not checked here; the backend owns the key.
type StaticTokenSource struct {
	token  string
	logger *slog.Logger
	now    func() time.Time
	leeway time.Duration

	mu      sync.Mutex
	expires *time.Time
	parsed  bool
}

// NewStaticTokenSource creates a token source. An empty token yields
// anonymous requests.
func NewStaticTokenSource(token string, logger *slog.Logger) *StaticTokenSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticTokenSource{
		token:  strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")),
		logger: logger,
		now:    time.Now,
		leeway: 5 * time.Second,
	}
}

// Token returns the token, or ErrUnauthorized once it has expired.
func (s *StaticTokenSource) Token() (string, error) {
	if s.token == "" {
		return "", nil
	}

	exp := s.expiry()
	if exp != nil && s.now().After(exp.Add(-s.leeway)) {
		return "", fmt.Errorf("%w: access token expired at %s", domain.ErrUnauthorized, exp.Format(time.RFC3339))
	}
	return s.token, nil
}

// Expiry reports when the token expires, if it is a JWT with an exp claim.
func (s *StaticTokenSource) Expiry() *time.Time {
	return s.expiry()
}

func (s *StaticTokenSource) expiry() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parsed {
		return s.expires
	}
	s.parsed = true

	claims, err := InspectToken(s.token)
	if err != nil {
		s.logger.Debug("access token is not a JWT, skipping expiry check", "error", err)
		return nil
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		s.expires = &exp
		s.logger.Info("access token loaded",
			"user_id", claims.UserID,
			"expires_at", exp,
		)
	}
	return s.expires
}

// InspectToken decodes a JWT's claims without verifying its signature.
func InspectToken(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, errors.New("not a JWT")
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
