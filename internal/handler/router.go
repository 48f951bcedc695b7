package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	BasePath      string
	AllowedOrigin string
}

// NewRouter builds the service router: standard middleware, CORS for the
// browser client, the health check and the task routes under BasePath.
func NewRouter(h *TaskHandler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{opts.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	if opts.BasePath == "" {
		r.Mount(routeTasks, h.Routes())
	} else {
		r.Route(opts.BasePath, func(r chi.Router) {
			r.Mount(routeTasks, h.Routes())
		})
	}

	return r
}
