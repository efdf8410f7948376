package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/unifiedsync/syncd"
	"github.com/unifiedsync/syncd/application/service"
	"github.com/unifiedsync/syncd/domain/task"
	"github.com/unifiedsync/syncd/infrastructure/api/middleware"
)

// QueueRouter exposes the pending task queue.
type QueueRouter struct {
	client *syncd.Client
	logger *slog.Logger
}

// NewQueueRouter creates a new QueueRouter.
func NewQueueRouter(client *syncd.Client) *QueueRouter {
	return &QueueRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for queue endpoints.
func (r *QueueRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.List)
	router.Get("/{id}", r.Get)
	return router
}

// TaskListResponse is a page of queued tasks.
type TaskListResponse struct {
	Data  []TaskResponse `json:"data"`
	Meta  Meta           `json:"meta"`
	Links Links          `json:"links"`
}

// List handles GET /api/v1/queue?operation=&page=&page_size=.
func (r *QueueRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	pagination := ParsePagination(req)

	params := &service.TaskListParams{
		Limit:  pagination.Limit(),
		Offset: pagination.Offset(),
	}
	if op := req.URL.Query().Get("operation"); op != "" {
		operation := task.Operation(op)
		params.Operation = &operation
	}

	tasks, err := r.client.Queue.List(ctx, params)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	total, err := r.client.Queue.Count(ctx)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, TaskListResponse{
		Data:  tasksToResponse(tasks),
		Meta:  PaginationMeta(pagination, total),
		Links: PaginationLinks(req, pagination, total),
	})
}

// Get handles GET /api/v1/queue/{id}.
func (r *QueueRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "task id must be an integer", err), r.logger)
		return
	}

	t, err := r.client.Queue.Get(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, taskToResponse(t))
}
