// Package requestid assigns each request a correlation ID used in logs and
// audit entries.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"identra/pkg/requestcontext"
)

// Header carries the request ID back to the client and accepts one from
// trusted upstreams.
const Header = "X-Request-Id"

// Middleware reuses an inbound request ID when present, otherwise mints one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
