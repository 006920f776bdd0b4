package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "identra/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantStatus      int
		wantError       string
		wantDescription string
	}{
		{
			name:            "bad request",
			err:             dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"),
			wantStatus:      http.StatusBadRequest,
			wantError:       "bad_request",
			wantDescription: "limit must be a non-negative integer",
		},
		{
			name:            "unauthorized",
			err:             dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"),
			wantStatus:      http.StatusUnauthorized,
			wantError:       "unauthorized",
			wantDescription: "invalid or expired token",
		},
		{
			name:            "not found",
			err:             dErrors.New(dErrors.CodeNotFound, "entry not found"),
			wantStatus:      http.StatusNotFound,
			wantError:       "not_found",
			wantDescription: "entry not found",
		},
		{
			name:       "plain error maps to internal and hides detail",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "wrapped domain error keeps its code",
			err:        dErrors.Wrap(dErrors.CodeUnavailable, "store unavailable", errors.New("dial tcp: refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "unavailable",
			// Only the client-safe message, never the cause.
			wantDescription: "store unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp["error"])
			assert.Equal(t, tt.wantDescription, resp["error_description"])
			assert.NotContains(t, w.Body.String(), "refused")
		})
	}
}

type echoRequest struct {
	Name string `json:"name"`
}

func (r *echoRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *echoRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("decodes and normalizes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  ada  "}`))
		w := httptest.NewRecorder()

		decoded, ok := DecodeAndPrepare[echoRequest](w, req, logger, req.Context(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "ada", decoded.Name)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[echoRequest](w, req, logger, req.Context(), "req-1")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects failed validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"   "}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[echoRequest](w, req, logger, req.Context(), "req-1")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "name is required", resp["error_description"])
	})
}
