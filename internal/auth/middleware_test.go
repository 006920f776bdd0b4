package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identra/internal/token"
	"identra/pkg/requestcontext"
)

func issueTestToken(t *testing.T, tokens *token.Service, subject string) string {
	t.Helper()
	raw, err := tokens.Issue(token.Claims{Subject: subject, Email: subject + "@example.com", Role: "admin"}, 15*time.Minute)
	require.NoError(t, err)
	return raw
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireAuth(t *testing.T) {
	tokens := testTokenService(t)

	var seenActor, seenBearer string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenActor = requestcontext.ActorID(r.Context())
		seenBearer = requestcontext.BearerToken(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	protected := RequireAuth(tokens, discardLogger())(next)

	t.Run("valid token passes and attaches identity", func(t *testing.T) {
		raw := issueTestToken(t, tokens, "u1")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "u1", seenActor)
		assert.Equal(t, raw, seenBearer)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token rejected with same body", func(t *testing.T) {
		missingReq := httptest.NewRequest(http.MethodGet, "/", nil)
		missingRec := httptest.NewRecorder()
		protected.ServeHTTP(missingRec, missingReq)

		garbageReq := httptest.NewRequest(http.MethodGet, "/", nil)
		garbageReq.Header.Set("Authorization", "Bearer garbage")
		garbageRec := httptest.NewRecorder()
		protected.ServeHTTP(garbageRec, garbageReq)

		assert.Equal(t, http.StatusUnauthorized, garbageRec.Code)
		assert.Equal(t, missingRec.Body.String(), garbageRec.Body.String())
	})

	t.Run("non-bearer scheme rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	tokens := testTokenService(t)

	var seenActor, seenBearer string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenActor = requestcontext.ActorID(r.Context())
		seenBearer = requestcontext.BearerToken(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	open := OptionalAuth(tokens)(next)

	t.Run("valid token attaches identity", func(t *testing.T) {
		raw := issueTestToken(t, tokens, "u1")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		open.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "u1", seenActor)
	})

	t.Run("missing token still passes", func(t *testing.T) {
		seenActor, seenBearer = "", ""
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		open.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, seenActor)
	})

	t.Run("invalid token passes but keeps the raw bearer", func(t *testing.T) {
		seenActor, seenBearer = "", ""
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		open.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, seenActor)
		// Late consumers (the audit identity chain) still get the raw token.
		assert.Equal(t, "garbage", seenBearer)
	})
}
