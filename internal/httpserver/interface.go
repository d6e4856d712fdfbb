// Package httpserver runs the EcoCarto HTTP API on echo with graceful shutdown.
package httpserver

import (
	api "github.com/tphakala/ecocarto/internal/api/v1"
)

// Server defines the lifecycle of the HTTP server.
type Server interface {
	// Start begins serving HTTP requests in a background goroutine and
	// returns immediately. Use Shutdown to stop the server.
	Start() error

	// Shutdown gracefully stops the server and releases resources.
	Shutdown() error

	// APIController returns the API controller.
	APIController() *api.Controller
}
