// Package httpserver builds the checkout HTTP server.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"euvat/internal/platform/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	// Checkout submission may wait on a VIES round trip before writing.
	writeTimeout = 20 * time.Second
)

// New returns a server bound to cfg.Addr. Connection level errors from
// net/http go to logger at warn level.
func New(cfg config.Server, handler http.Handler, logger *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	if logger != nil {
		srv.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
	return srv
}
