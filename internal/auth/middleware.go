package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"identra/internal/token"
	dErrors "identra/pkg/domain-errors"
	"identra/pkg/platform/httputil"
	"identra/pkg/requestcontext"
)

// Verifier checks a bearer token. Satisfied by *token.Service.
type Verifier interface {
	Verify(token string) (*token.Claims, error)
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid bearer token and attaches the
// verified identity to the context. The rejection body never distinguishes
// expired from malformed tokens.
func RequireAuth(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			ctx = requestcontext.WithBearerToken(ctx, raw)

			claims, err := verifier.Verify(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithActorID(ctx, claims.Subject)
			ctx = requestcontext.WithActorEmail(ctx, claims.Email)
			ctx = requestcontext.WithActorRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the bearer token and, when it verifies, the identity,
// but never rejects the request. Anonymous endpoints use this so the audit
// pipeline's fallback chain still has the raw token to work with.
func OptionalAuth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw, ok := bearerToken(r); ok {
				ctx = requestcontext.WithBearerToken(ctx, raw)
				if claims, err := verifier.Verify(raw); err == nil {
					ctx = requestcontext.WithActorID(ctx, claims.Subject)
					ctx = requestcontext.WithActorEmail(ctx, claims.Email)
					ctx = requestcontext.WithActorRole(ctx, claims.Role)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	after, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || after == "" {
		return "", false
	}
	return after, true
}
