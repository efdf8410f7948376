package v1

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/unifiedsync/syncd"
	"github.com/unifiedsync/syncd/infrastructure/api/middleware"
)

// EntitiesRouter describes the entity types the engine can sync.
type EntitiesRouter struct {
	client *syncd.Client
}

// NewEntitiesRouter creates a new EntitiesRouter.
func NewEntitiesRouter(client *syncd.Client) *EntitiesRouter {
	return &EntitiesRouter{client: client}
}

// Routes returns the chi router for entity endpoints.
func (r *EntitiesRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.List)
	return router
}

// EntityResponse describes one entity type.
type EntityResponse struct {
	Type      string   `json:"type"`
	Table     string   `json:"table"`
	Providers []string `json:"providers"`
	// Configured lists the providers with a registered adapter.
	Configured []string `json:"configured"`
	Cron       string   `json:"cron,omitempty"`
	Parent     string   `json:"parent,omitempty"`
}

// List handles GET /api/v1/entities.
func (r *EntitiesRouter) List(w http.ResponseWriter, _ *http.Request) {
	var out []EntityResponse
	for _, desc := range r.client.Catalog.All() {
		resp := EntityResponse{
			Type:       desc.Type.String(),
			Table:      desc.Table,
			Providers:  desc.Providers,
			Configured: []string{},
			Cron:       desc.Cron,
		}
		for _, p := range desc.Providers {
			if _, ok := r.client.Adapters.Capability(p, desc.Type); ok {
				resp.Configured = append(resp.Configured, p)
			}
		}
		if desc.Scope != nil {
			resp.Parent = desc.Scope.Parent.String()
		}
		out = append(out, resp)
	}
	slices.SortFunc(out, func(a, b EntityResponse) int { return strings.Compare(a.Type, b.Type) })

	middleware.WriteJSON(w, http.StatusOK, map[string]any{"data": out})
}
