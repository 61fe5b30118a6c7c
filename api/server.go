package api

import (
	"net/http"
	"time"

	"github.com/angelmondragon/pdv-terminal/pkg/config"
)

// NewServer wraps handler in the terminal's local HTTP server.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Close and send calls may wait on several backend round trips.
		WriteTimeout: cfg.API.Timeout*time.Duration(max(cfg.API.MaxAttempts, 1)) + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
