package api

import (
	"evacuation-dashboard/internal/api/handlers"
	"evacuation-dashboard/internal/ports"
	"net/http"

	"go.uber.org/zap"
)

// Options configures the router's middleware.
type Options struct {
	// AllowedOrigins lists CORS origins; "*" allows any. Empty disables CORS headers.
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(repo ports.PlanRepository, opts Options) http.Handler {
	mux := http.NewServeMux()

	plans := &handlers.PlanHandler{Repo: repo}

	mux.HandleFunc("GET /api/health", handlers.Health)
	mux.HandleFunc("GET /api/evacuation-plans", plans.List)
	mux.HandleFunc("POST /api/evacuation-plans", plans.Create)
	mux.HandleFunc("GET /api/evacuation-plans/{id}", plans.Get)
	mux.HandleFunc("PUT /api/evacuation-plans/{id}", plans.Update)
	mux.HandleFunc("DELETE /api/evacuation-plans/{id}", plans.Delete)

	log := opts.Logger
	if log == nil {
		log = zap.L()
	}

	var h http.Handler = mux
	h = corsMiddleware(opts.AllowedOrigins, h)
	h = loggingMiddleware(log, h)
	h = requestIDMiddleware(h)
	return h
}
