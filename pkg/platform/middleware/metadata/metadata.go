// Package metadata captures per-request client metadata early in the chain so
// that audit recording can read it long after the response has been written.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"identra/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address and User-Agent from the request
// and adds them to the context for use by handlers and services.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		userAgent := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the client address for audit purposes. The
// direct connection address wins; proxy headers are consulted only when the
// socket peer is unusable. Header order: first X-Forwarded-For entry, then
// X-Real-IP.
func ClientIPFromRequest(r *http.Request) string {
	if addr := r.RemoteAddr; addr != "" {
		if ip := stripPort(addr); ip != "" {
			return ip
		}
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return ""
}

// stripPort removes the port from an "ip:port" or "[::1]:port" address. A
// portless address, including bare IPv6, passes through unchanged.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
