package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unifiedsync/syncd"
	"github.com/unifiedsync/syncd/application/service"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/provider"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/infrastructure/api"
	v1 "github.com/unifiedsync/syncd/infrastructure/api/v1"
	"github.com/unifiedsync/syncd/internal/config"
)

const apiKey = "test-secret-key"

type greenhouse struct{}

func (greenhouse) Provider() string { return "greenhouse" }

func (greenhouse) Supports(t entity.Type) bool { return t == entity.ATSAttachment }

func (greenhouse) Fetch(context.Context, provider.FetchRequest) (provider.FetchResponse, error) {
	return provider.FetchResponse{StatusCode: 200, Data: []entity.Raw{
		{"id": "abc123", "url": "https://files/cv.pdf"},
		{"id": "def456", "url": "https://files/letter.pdf"},
	}}, nil
}

type fixture struct {
	client  *syncd.Client
	handler http.Handler
	account tenant.LinkedAccount
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	client, err := syncd.New(
		syncd.WithDatabaseURL("sqlite:///:memory:"),
		syncd.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		syncd.WithAdapters(greenhouse{}),
		syncd.WithScheduler(config.NewSchedulerConfig().WithEnabled(false)),
		syncd.WithWorkerPollPeriod(time.Hour),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	tn, err := client.Tenants.SaveTenant(ctx, tenant.NewTenant("", "owner@example.com", time.Now()))
	require.NoError(t, err)
	p, err := client.Tenants.SaveProject(ctx, tenant.NewProject("", "prod", tn.ID()))
	require.NoError(t, err)
	la, err := client.Tenants.SaveLinkedAccount(ctx, tenant.NewLinkedAccount("", "cust-1", "Acme", p.ID()))
	require.NoError(t, err)
	_, err = client.Connections.Create(ctx, tenant.NewConnection("", "greenhouse", entity.VerticalATS, "valid", la.ID(), p.ID(), time.Now()))
	require.NoError(t, err)
	require.NoError(t, client.Syncs.SyncConnection(ctx, entity.ATSAttachment, la.ID(), "greenhouse", ""))

	return fixture{
		client:  client,
		handler: api.NewAPIServer(client, []string{apiKey}).Handler(),
		account: la,
	}
}

func (f fixture) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func TestAPIServer_Health(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "syncd_pipeline_runs_total")
}

func TestAPIServer_Records(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/records/ats/attachment?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode[service.Page](t, w)
	require.Len(t, first.Records, 1)
	require.NotEmpty(t, first.NextCursor)

	w = f.do(t, http.MethodGet, "/api/v1/records/ats/attachment?limit=1&remote_data=true&cursor="+first.NextCursor, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[service.Page](t, w)
	require.Len(t, second.Records, 1)
	assert.Empty(t, second.NextCursor)
	assert.NotEmpty(t, second.Records[0].RemoteData)

	w = f.do(t, http.MethodGet, "/api/v1/records/ats/attachment/"+first.Records[0].ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[service.RecordView](t, w)
	assert.Equal(t, first.Records[0].RemoteID, got.RemoteID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/records/ats/attachment/missing", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/records/ats/unicorn", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/records/ats/attachment?limit=many", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/records/ats/attachment?cursor=%25%25", "", nil).Code)
}

func TestAPIServer_PushRequiresKeyAndHeaders(t *testing.T) {
	f := newFixture(t)
	body := `{"fields":{"file_url":"https://files/new.pdf"}}`

	w := f.do(t, http.MethodPost, "/api/v1/records/ats/attachment?provider=greenhouse", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/records/ats/attachment?provider=greenhouse", body, map[string]string{"X-API-KEY": apiKey})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// greenhouse cannot create records.
	w = f.do(t, http.MethodPost, "/api/v1/records/ats/attachment?provider=greenhouse", body, map[string]string{
		"X-API-KEY":            apiKey,
		v1.LinkedAccountHeader: f.account.ID(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestAPIServer_SyncsAreQueued(t *testing.T) {
	f := newFixture(t)
	body := `{"entity_type":"ats.attachment","linked_account_id":"` + f.account.ID() + `","provider":"greenhouse"}`

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/v1/syncs", body, nil).Code)

	w := f.do(t, http.MethodPost, "/api/v1/syncs", body, map[string]string{"X-API-KEY": apiKey})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	queued := decode[v1.TaskResponse](t, w)
	assert.Equal(t, "syncd.sync.connection", queued.Operation)
	assert.Equal(t, "greenhouse", queued.Payload["provider"])

	w = f.do(t, http.MethodGet, "/api/v1/queue", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[v1.TaskListResponse](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Meta.TotalCount)

	w = f.do(t, http.MethodGet, "/api/v1/queue/"+strconv.FormatInt(queued.ID, 10), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	bad := map[string]string{"X-API-KEY": apiKey}
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/syncs", `{"entity_type":"nope"}`, bad).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/syncs", `{"entity_type":"ats.unicorn"}`, bad).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/syncs", `{"entity_type":"crm.stage","scope_id":"x"}`, bad).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/syncs", `{`, bad).Code)
}

func TestAPIServer_EventsAndEntities(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/events?linked_account_id="+f.account.ID(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[v1.EventListResponse](t, w)
	require.Len(t, events.Data, 1)
	assert.Equal(t, "ats.attachment.synced", events.Data[0].Type)
	assert.Equal(t, "success", events.Data[0].Status)

	w = f.do(t, http.MethodGet, "/api/v1/entities", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entities := decode[struct {
		Data []v1.EntityResponse `json:"data"`
	}](t, w)
	var found bool
	for _, e := range entities.Data {
		if e.Type == "ats.attachment" {
			found = true
			assert.Equal(t, []string{"greenhouse"}, e.Configured)
		}
	}
	assert.True(t, found)
}
