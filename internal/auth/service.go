// Package auth is the authentication boundary: it checks credentials through
// an external user verifier and mints encrypted session tokens. Password
// hashing and user storage live upstream, behind the UserVerifier interface.
package auth

import (
	"context"
	"fmt"
	"time"

	"identra/internal/token"
	dErrors "identra/pkg/domain-errors"
)

// User is the minimal identity the verifier returns.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserVerifier checks credentials against the user base. External
// collaborator; implementations own hashing and lookup.
type UserVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*User, error)
}

// SignInResult is returned to a successfully authenticated caller.
type SignInResult struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        *User     `json:"user"`
}

// AuditActorID lets the audit pipeline attribute a sign-in to the user it
// authenticated, before any token exists on the request.
func (r *SignInResult) AuditActorID() string {
	if r == nil || r.User == nil {
		return ""
	}
	return r.User.ID
}

// Service authenticates users and mints session tokens.
type Service struct {
	users    UserVerifier
	tokens   *token.Service
	tokenTTL time.Duration
}

// NewService constructs the auth service.
func NewService(users UserVerifier, tokens *token.Service, tokenTTL time.Duration) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user verifier is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if tokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &Service{users: users, tokens: tokens, tokenTTL: tokenTTL}, nil
}

// SignIn verifies credentials and issues an encrypted session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	user, err := s.users.VerifyCredentials(ctx, email, password)
	if err != nil {
		// Wrong email and wrong password read the same to the caller.
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := time.Now()
	accessToken, err := s.tokens.Issue(token.Claims{
		Subject: user.ID,
		Email:   user.Email,
		Role:    user.Role,
	}, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	return &SignInResult{
		AccessToken: accessToken,
		ExpiresAt:   now.Add(s.tokenTTL),
		User:        user,
	}, nil
}

// Introspect verifies a raw token and returns its claims. Every failure is
// the same opaque unauthorized error.
func (s *Service) Introspect(_ context.Context, raw string) (*token.Claims, error) {
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}
	return s.tokens.Verify(raw)
}
