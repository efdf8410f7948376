package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unifiedsync/syncd"
	apimiddleware "github.com/unifiedsync/syncd/infrastructure/api/middleware"
	v1 "github.com/unifiedsync/syncd/infrastructure/api/v1"
)

// APIServer provides an HTTP API backed by a syncd Client.
type APIServer struct {
	client       *syncd.Client
	apiKeys      []string
	corsOrigins  []string
	timeouts     Timeouts
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given syncd Client.
// apiKeys configures write-protection: mutating endpoints under /api/v1
// require a valid key. Reads, /health and /metrics remain open.
func NewAPIServer(client *syncd.Client, apiKeys []string) *APIServer {
	return &APIServer{
		client:  client,
		apiKeys:  apiKeys,
		timeouts: DefaultTimeouts(),
		logger:   client.Logger(),
	}
}

// WithTimeouts replaces the default HTTP timeouts.
func (a *APIServer) WithTimeouts(t Timeouts) *APIServer {
	a.timeouts = t
	return a
}

// WithCORSOrigins allows browser requests from the given origins.
func (a *APIServer) WithCORSOrigins(origins []string) *APIServer {
	a.corsOrigins = origins
	return a
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	router.Group(func(r chi.Router) {
		r.Use(apimiddleware.Logging(a.logger))
		r.Use(apimiddleware.Metrics(c.Metrics()))
		if len(a.corsOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: a.corsOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type", apimiddleware.APIKeyHeader, v1.LinkedAccountHeader},
				MaxAge:         300,
			}))
		}

		r.Get("/health", a.health)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(a.timeouts.Request))

			r.Mount("/entities", v1.NewEntitiesRouter(c).Routes())
			r.Mount("/queue", v1.NewQueueRouter(c).Routes())
			r.Mount("/events", v1.NewEventsRouter(c).Routes())

			r.Group(func(r chi.Router) {
				r.Use(apimiddleware.WriteProtectAuth(a.apiKeys))
				r.Mount("/syncs", v1.NewSyncsRouter(c).Routes())
				r.Mount("/records", v1.NewRecordsRouter(c).Routes())
			})
		})
	})

	if m := c.Metrics(); m != nil {
		router.Handle("/metrics", m.Handler())
	}
}

func (a *APIServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.client.Ping(ctx); err != nil {
		a.logger.WarnContext(ctx, "health check failed", slog.String("error", err.Error()))
		apimiddleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.timeouts, a.logger)
	a.server = server

	if a.routerCalled && a.router != nil {
		server.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(server.Router())
	}

	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}
