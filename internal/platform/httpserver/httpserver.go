// Package httpserver owns the process's HTTP server defaults and its graceful
// drain deadline.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

// ShutdownTimeout bounds graceful drain on exit. The audit worker flushes its
// inbox only after this window, so a hung handler cannot stall shutdown
// indefinitely.
const ShutdownTimeout = 10 * time.Second

// New builds an HTTP server with this project's timeouts.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown drains the server within ShutdownTimeout.
func Shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
