package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/unifiedsync/syncd"
	"github.com/unifiedsync/syncd/application/service"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/task"
	"github.com/unifiedsync/syncd/infrastructure/api/middleware"
)

// SyncsRouter triggers syncs through the task queue.
type SyncsRouter struct {
	client *syncd.Client
	logger *slog.Logger
}

// NewSyncsRouter creates a new SyncsRouter.
func NewSyncsRouter(client *syncd.Client) *SyncsRouter {
	return &SyncsRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for sync endpoints.
func (r *SyncsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Create)
	return router
}

// SyncCreateRequest is the body of POST /syncs.
type SyncCreateRequest struct {
	EntityType      string `json:"entity_type"`
	TenantID        string `json:"tenant_id,omitempty"`
	ProjectID       string `json:"project_id,omitempty"`
	LinkedAccountID string `json:"linked_account_id,omitempty"`
	Provider        string `json:"provider,omitempty"`
	ScopeID         string `json:"scope_id,omitempty"`
}

// Create handles POST /api/v1/syncs. The sync runs on the worker; the
// response is the queued task.
func (r *SyncsRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body SyncCreateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	t, err := entity.ParseType(body.EntityType)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if _, err := r.client.Catalog.Get(t); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if body.ScopeID != "" && (body.LinkedAccountID == "" || body.Provider == "") {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "scope_id requires linked_account_id and provider", nil), r.logger)
		return
	}

	queued, err := r.client.Queue.EnqueueSync(req.Context(), service.SyncRequest{
		EntityType:      t,
		TenantID:        body.TenantID,
		ProjectID:       body.ProjectID,
		LinkedAccountID: body.LinkedAccountID,
		Provider:        body.Provider,
		ScopeID:         body.ScopeID,
	}, task.PriorityUserInitiated)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, taskToResponse(queued))
}
