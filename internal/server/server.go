// package server contains middleware & handlers for the snapshot web service
package server

import (
	"context"
	"net/http"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/services"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// The service uses it for request logging and the PIN gate.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the snapshot service.
// Implementations handle specific endpoints (setup, sync, status, config).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Authenticator is the provider surface the web app needs: the full catalog
// and playlist operations plus the two halves of the device-code login.
type Authenticator interface {
	services.Session
	LoginStart(ctx context.Context) (*models.PendingAuth, error)
	LoginCheck(ctx context.Context) error
}
