package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"identra/internal/audit"
	"identra/internal/auth"
	"identra/internal/intercept"
	"identra/internal/token"
	dErrors "identra/pkg/domain-errors"
	"identra/pkg/platform/httputil"
	"identra/pkg/requestcontext"
)

// Service defines the auth operations the handler exposes.
type Service interface {
	SignIn(ctx context.Context, email, password string) (*auth.SignInResult, error)
	Introspect(ctx context.Context, raw string) (*token.Claims, error)
}

// Handler wires authentication endpoints to the auth service.
type Handler struct {
	service     Service
	interceptor *intercept.Interceptor
	logger      *slog.Logger
}

// New constructs an auth handler with its dependencies.
func New(service Service, interceptor *intercept.Interceptor, logger *slog.Logger) *Handler {
	return &Handler{
		service:     service,
		interceptor: interceptor,
		logger:      logger,
	}
}

// Register mounts auth endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/sign-in", h.HandleSignIn)
	r.Get("/auth/introspect", h.HandleIntrospect)
}

// SignInRequest is the sign-in request body.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims and lowercases the email.
func (r *SignInRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Validate checks required fields.
func (r *SignInRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "password is required")
	}
	return nil
}

var signInDescriptor = audit.Descriptor{
	Action:      audit.ActionLogin,
	EntityType:  audit.EntityUser,
	Description: "User sign-in",
}

// HandleSignIn handles POST /auth/sign-in requests.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SignInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := intercept.Do(ctx, h.interceptor, signInDescriptor, func(ctx context.Context) (*auth.SignInResult, error) {
		return h.service.SignIn(ctx, req.Email, req.Password)
	})
	if err != nil {
		h.logger.WarnContext(ctx, "sign-in failed",
			"request_id", requestID,
			"email", req.Email,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user signed in",
		"request_id", requestID,
		"user_id", result.User.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleIntrospect handles GET /auth/introspect requests. The caller submits
// the token to inspect as its own bearer credential.
func (h *Handler) HandleIntrospect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := requestcontext.BearerToken(ctx)
	if raw == "" {
		header := r.Header.Get("Authorization")
		raw, _ = strings.CutPrefix(header, "Bearer ")
	}

	claims, err := h.service.Introspect(ctx, raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"subject":   claims.Subject,
		"email":     claims.Email,
		"role":      claims.Role,
		"issuedAt":  claims.IssuedAt,
		"expiresAt": claims.ExpiresAt,
	})
}
