// Package api exposes the authentication flows over a loopback REST facade
// for the local capture UI. It is not a session server: one grant per user,
// one attempt in flight, same process trust domain.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/facelock/auth"
	"github.com/jmcleod/facelock/face"
)

// Authenticator is the slice of the coordinator the handlers need.
type Authenticator interface {
	Register(ctx context.Context, username, password string, frames face.FrameStream) (*auth.Enrollment, error)
	Login(ctx context.Context, username, password string, frames face.FrameStream, prompt auth.CodePrompt) (*auth.Grant, error)
}

// API holds the dependencies needed by the REST handlers.
type API struct {
	coord Authenticator
	audit *auditLogger
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events. If not set, a
// default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// New creates a new API instance over the coordinator.
func New(coord Authenticator, opts ...Option) *API {
	a := &API{coord: coord}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", a.Health)
	r.Post("/register", a.HandleRegister)
	r.Post("/login", a.HandleLogin)
	return r
}

// Health reports process liveness for the capture UI.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
