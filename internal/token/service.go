// Package token issues and verifies encrypted session tokens. Tokens are
// compact JWEs (RSA-OAEP-256 key wrap, A256GCM content encryption) around a
// small claim set; only holders of the private key can recover claims.
package token

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"identra/internal/keys"
	"identra/internal/token/metrics"
	dErrors "identra/pkg/domain-errors"
)

// Issuer and audience are fixed for every token this service mints; verify
// rejects anything else.
const (
	Issuer   = "identra"
	Audience = "identra-api"
)

const (
	claimEmail = "email"
	claimRole  = "role"
)

// Claims is the identity payload carried inside a session token.
// Immutable once issued.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service issues and verifies encrypted session tokens. Construct once at
// startup and inject by reference; the service holds no mutable state.
type Service struct {
	material *keys.Material
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Tests use this to force expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a token service over already-loaded key material.
func New(material *keys.Material, opts ...Option) (*Service, error) {
	if material == nil {
		return nil, fmt.Errorf("key material is required")
	}
	s := &Service{
		material: material,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue mints an encrypted token for the given subject. Issued-at is the
// current time, expiry is now+ttl, issuer and audience are fixed.
func (s *Service) Issue(claims Claims, ttl time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "token subject is required")
	}
	if ttl <= 0 {
		return "", dErrors.New(dErrors.CodeBadRequest, "token ttl must be positive")
	}

	now := s.now()
	tok, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Subject(claims.Subject).
		Issuer(Issuer).
		Audience([]string{Audience}).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(claimEmail, claims.Email).
		Claim(claimRole, claims.Role).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token claims: %w", err)
	}

	serialized, err := jwt.NewSerializer().
		Encrypt(
			jwt.WithKey(jwa.RSA_OAEP_256, s.material.Public()),
			jwt.WithEncryptOption(jwe.WithContentEncryption(jwa.A256GCM)),
		).
		Serialize(tok)
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}

	s.metrics.IncIssued()
	return string(serialized), nil
}

// Verify decrypts a token and validates issuer, audience, and expiry. Every
// failure collapses into one opaque unauthorized error: distinguishing
// expired from malformed tokens would hand an oracle to attackers.
func (s *Service) Verify(token string) (*Claims, error) {
	decrypted, err := jwe.Decrypt([]byte(token),
		jwe.WithKey(jwa.RSA_OAEP_256, s.material.Private()),
	)
	if err != nil {
		s.metrics.IncRejected()
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}

	// The JWE's AEAD tag already authenticated the payload; there is no inner
	// signature to verify, only claims to validate.
	parsed, err := jwt.Parse(decrypted,
		jwt.WithVerify(false),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithClock(jwt.ClockFunc(s.now)),
		jwt.WithValidate(true),
	)
	if err != nil {
		s.metrics.IncRejected()
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}

	claims := &Claims{
		Subject:   parsed.Subject(),
		IssuedAt:  parsed.IssuedAt(),
		ExpiresAt: parsed.Expiration(),
	}
	if v, ok := parsed.Get(claimEmail); ok {
		if email, ok := v.(string); ok {
			claims.Email = email
		}
	}
	if v, ok := parsed.Get(claimRole); ok {
		if role, ok := v.(string); ok {
			claims.Role = role
		}
	}

	s.metrics.IncVerified()
	return claims, nil
}
