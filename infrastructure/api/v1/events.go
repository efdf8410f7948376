package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/unifiedsync/syncd"
	"github.com/unifiedsync/syncd/domain/event"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/infrastructure/api/middleware"
)

// EventsRouter lists the sync and push audit trail.
type EventsRouter struct {
	client *syncd.Client
	logger *slog.Logger
}

// NewEventsRouter creates a new EventsRouter.
func NewEventsRouter(client *syncd.Client) *EventsRouter {
	return &EventsRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for event endpoints.
func (r *EventsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.List)
	return router
}

// EventResponse is the JSON shape of an event.
type EventResponse struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	Method          string    `json:"method"`
	URL             string    `json:"url"`
	Provider        string    `json:"provider"`
	Direction       string    `json:"direction"`
	LinkedAccountID string    `json:"id_linked_user"`
	Timestamp       time.Time `json:"timestamp"`
}

// EventListResponse is a page of events.
type EventListResponse struct {
	Data []EventResponse `json:"data"`
	Meta Meta            `json:"meta"`
}

// List handles GET /api/v1/events?linked_account_id=&type=&status=&provider=.
// Events are newest first.
func (r *EventsRouter) List(w http.ResponseWriter, req *http.Request) {
	pagination := ParsePagination(req)
	q := req.URL.Query()

	options := pagination.Options()
	if v := q.Get("linked_account_id"); v != "" {
		options = append(options, store.WithLinkedAccountID(v))
	}
	if v := q.Get("type"); v != "" {
		options = append(options, store.WithType(v))
	}
	if v := q.Get("status"); v != "" {
		options = append(options, store.WithStatus(v))
	}
	if v := q.Get("provider"); v != "" {
		options = append(options, store.WithProvider(v))
	}

	events, err := r.client.Events.Find(req.Context(), options...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, EventListResponse{
		Data: eventsToResponse(events),
		Meta: PaginationMeta(pagination, int64(len(events))),
	})
}

func eventsToResponse(events []event.Event) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = EventResponse{
			ID:              e.ID(),
			Type:            e.Type(),
			Status:          string(e.Status()),
			Method:          e.Method(),
			URL:             e.URL(),
			Provider:        e.Provider(),
			Direction:       string(e.Direction()),
			LinkedAccountID: e.LinkedAccountID(),
			Timestamp:       e.Timestamp(),
		}
	}
	return out
}
