// Package v1 provides the v1 API routes.
package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/unifiedsync/syncd"
	"github.com/unifiedsync/syncd/application/service"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/infrastructure/api/middleware"
)

// LinkedAccountHeader names the linked account a pushed record belongs to.
const LinkedAccountHeader = "X-Linked-Account-ID"

// RecordsRouter handles canonical record endpoints.
type RecordsRouter struct {
	client *syncd.Client
	logger *slog.Logger
}

// NewRecordsRouter creates a new RecordsRouter.
func NewRecordsRouter(client *syncd.Client) *RecordsRouter {
	return &RecordsRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for record endpoints.
func (r *RecordsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{vertical}/{entity}", r.List)
	router.Post("/{vertical}/{entity}", r.Push)
	router.Get("/{vertical}/{entity}/{id}", r.Get)

	return router
}

// RecordPushRequest is the body of POST /records/{vertical}/{entity}.
type RecordPushRequest struct {
	Fields map[string]any `json:"fields"`
}

// List handles GET /api/v1/records/{vertical}/{entity}.
func (r *RecordsRouter) List(w http.ResponseWriter, req *http.Request) {
	t, err := entityType(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	q := req.URL.Query()
	params := service.ListParams{
		ConnectionID: q.Get("connection_id"),
		Cursor:       q.Get("cursor"),
	}
	if s := q.Get("limit"); s != "" {
		params.Limit, err = strconv.Atoi(s)
		if err != nil {
			middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "limit must be an integer", err), r.logger)
			return
		}
	}
	if params.RemoteData, err = boolParam(req, "remote_data"); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	page, err := r.client.Records.List(req.Context(), t, params)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, page)
}

// Get handles GET /api/v1/records/{vertical}/{entity}/{id}.
func (r *RecordsRouter) Get(w http.ResponseWriter, req *http.Request) {
	t, err := entityType(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	withRemoteData, err := boolParam(req, "remote_data")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	view, err := r.client.Records.Get(req.Context(), t, chi.URLParam(req, "id"), withRemoteData)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// Push handles POST /api/v1/records/{vertical}/{entity}?provider=.
// The record is created at the provider first, then stored.
func (r *RecordsRouter) Push(w http.ResponseWriter, req *http.Request) {
	t, err := entityType(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	linkedAccountID := req.Header.Get(LinkedAccountHeader)
	if linkedAccountID == "" {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, LinkedAccountHeader+" header is required", nil), r.logger)
		return
	}
	providerName := req.URL.Query().Get("provider")
	if providerName == "" {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "provider query parameter is required", nil), r.logger)
		return
	}

	var body RecordPushRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}
	if len(body.Fields) == 0 {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "fields must not be empty", nil), r.logger)
		return
	}

	view, err := r.client.Records.Push(req.Context(), service.PushInput{
		EntityType:      t,
		LinkedAccountID: linkedAccountID,
		Provider:        providerName,
		Record:          entity.NewRecord("", body.Fields, nil, nil),
	})
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, view)
}

// entityType reads the {vertical}/{entity} path segments.
func entityType(req *http.Request) (entity.Type, error) {
	return entity.ParseType(chi.URLParam(req, "vertical") + "." + chi.URLParam(req, "entity"))
}

func boolParam(req *http.Request, name string) (bool, error) {
	s := req.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, middleware.NewAPIError(http.StatusBadRequest, fmt.Sprintf("%s must be a boolean", name), err)
	}
	return v, nil
}
