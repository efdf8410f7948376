package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/mapping"
	"github.com/unifiedsync/syncd/domain/provider"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/domain/unification"
	"github.com/unifiedsync/syncd/domain/webhook"
	"github.com/unifiedsync/syncd/infrastructure/persistence"
	"github.com/unifiedsync/syncd/internal/database"
	"github.com/unifiedsync/syncd/internal/testdb"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fetchFunc func(ctx context.Context, req provider.FetchRequest) ([]entity.Raw, error)

type fakeAdapter struct {
	name  string
	types map[entity.Type]bool
	fetch fetchFunc

	pushStatus int
	pushData   entity.Raw
	pushErr    error

	mu       sync.Mutex
	requests []provider.FetchRequest
	pushed   []provider.PushRequest
}

func newFakeAdapter(name string, fetch fetchFunc, types ...entity.Type) *fakeAdapter {
	supported := make(map[entity.Type]bool, len(types))
	for _, t := range types {
		supported[t] = true
	}
	return &fakeAdapter{name: name, types: supported, fetch: fetch}
}

func returning(raws ...entity.Raw) fetchFunc {
	return func(context.Context, provider.FetchRequest) ([]entity.Raw, error) {
		return raws, nil
	}
}

func (f *fakeAdapter) Provider() string { return f.name }

func (f *fakeAdapter) Supports(t entity.Type) bool { return f.types[t] }

func (f *fakeAdapter) Fetch(ctx context.Context, req provider.FetchRequest) (provider.FetchResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	data, err := f.fetch(ctx, req)
	if err != nil {
		return provider.FetchResponse{}, err
	}
	return provider.FetchResponse{Data: data, StatusCode: 200}, nil
}

func (f *fakeAdapter) Requests() []provider.FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.FetchRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

type fakePusher struct {
	*fakeAdapter
}

func (f fakePusher) Push(_ context.Context, req provider.PushRequest) (provider.PushResponse, error) {
	f.mu.Lock()
	f.pushed = append(f.pushed, req)
	f.mu.Unlock()
	if f.pushErr != nil {
		return provider.PushResponse{}, f.pushErr
	}
	return provider.PushResponse{Data: f.pushData, StatusCode: f.pushStatus}, nil
}

type fakeDispatcher struct {
	err error

	mu         sync.Mutex
	deliveries []webhook.Delivery
}

func (f *fakeDispatcher) Dispatch(_ context.Context, d webhook.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return f.err
}

func (f *fakeDispatcher) Deliveries() []webhook.Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]webhook.Delivery, len(f.deliveries))
	copy(out, f.deliveries)
	return out
}

func testRuleSets() []unification.RuleSet {
	return []unification.RuleSet{
		{
			Provider:     "greenhouse",
			EntityType:   entity.ATSAttachment,
			RemoteIDPath: "id",
			Fields: []unification.FieldRule{
				{Field: "file_url", Path: "url", Kind: unification.KindString, Required: true},
				{Field: "file_name", Path: "filename", Kind: unification.KindString},
			},
		},
		{
			Provider:     "hubspot",
			EntityType:   entity.CRMDeal,
			RemoteIDPath: "id",
			Fields: []unification.FieldRule{
				{Field: "name", Path: "properties.dealname", Kind: unification.KindString},
			},
		},
		{
			Provider:     "hubspot",
			EntityType:   entity.CRMStage,
			RemoteIDPath: "id",
			Fields: []unification.FieldRule{
				{Field: "stage_name", Path: "label", Kind: unification.KindString},
			},
		},
		{
			Provider:     "hubspot",
			EntityType:   entity.CRMNote,
			RemoteIDPath: "id",
			Fields: []unification.FieldRule{
				{Field: "content", Path: "properties.hs_note_body", Kind: unification.KindString},
				{Field: "deal_id", Path: "associations.deal", Kind: unification.KindString},
				{Field: "user_id", Path: "properties.hubspot_owner_id", Kind: unification.KindString, ReadOnly: true},
			},
		},
	}
}

type harness struct {
	db          database.Database
	catalog     entity.Catalog
	tenants     persistence.TenantStore
	connections persistence.ConnectionStore
	mappings    persistence.MappingStore
	events      persistence.EventStore
	records     persistence.RecordStore
	registry    *provider.Registry
	engine      *unification.Engine
	dispatcher  *fakeDispatcher
	notifier    *Notifier
	locks       *KeyLock
}

func newHarness(t *testing.T, adapters ...provider.Adapter) *harness {
	t.Helper()
	db := testdb.New(t)
	catalog := entity.Builtin()

	engine, err := unification.NewEngine(testRuleSets()...)
	require.NoError(t, err)

	h := &harness{
		db:          db,
		catalog:     catalog,
		tenants:     persistence.NewTenantStore(db),
		connections: persistence.NewConnectionStore(db),
		mappings:    persistence.NewMappingStore(db),
		events:      persistence.NewEventStore(db),
		records:     persistence.NewRecordStore(db, catalog),
		registry:    provider.NewRegistry(adapters...),
		engine:      engine,
		dispatcher:  &fakeDispatcher{},
		locks:       NewKeyLock(),
	}
	h.notifier = NewNotifier(h.events, h.dispatcher, nil, discardLogger())
	return h
}

func (h *harness) sync(opts ...SyncOption) *Sync {
	opts = append(opts, WithKeyLock(h.locks))
	return NewSync(h.catalog, h.tenants, h.connections, h.mappings, h.registry, h.engine, h.records, h.notifier, discardLogger(), opts...)
}

func (h *harness) recordsService() *Records {
	return NewRecords(h.catalog, h.records, h.connections, h.mappings, h.registry, h.engine, h.notifier, h.locks, discardLogger())
}

// seedAccount creates a tenant, a project and a linked account.
func (h *harness) seedAccount(t *testing.T) (tenant.Project, tenant.LinkedAccount) {
	t.Helper()
	ctx := context.Background()
	tn, err := h.tenants.SaveTenant(ctx, tenant.NewTenant("", "owner@example.com", time.Now()))
	require.NoError(t, err)
	p, err := h.tenants.SaveProject(ctx, tenant.NewProject("", "prod", tn.ID()))
	require.NoError(t, err)
	la, err := h.tenants.SaveLinkedAccount(ctx, tenant.NewLinkedAccount("", "cust-1", "Acme", p.ID()))
	require.NoError(t, err)
	return p, la
}

func (h *harness) addAccount(t *testing.T, p tenant.Project, originID string) tenant.LinkedAccount {
	t.Helper()
	la, err := h.tenants.SaveLinkedAccount(context.Background(), tenant.NewLinkedAccount("", originID, originID, p.ID()))
	require.NoError(t, err)
	return la
}

func (h *harness) connect(t *testing.T, la tenant.LinkedAccount, providerName string, vertical entity.Vertical) tenant.Connection {
	t.Helper()
	conn, err := h.connections.Create(context.Background(),
		tenant.NewConnection("", providerName, vertical, "valid", la.ID(), la.ProjectID(), time.Now()))
	require.NoError(t, err)
	return conn
}

func (h *harness) defineMapping(t *testing.T, la tenant.LinkedAccount, providerName, slug, remoteProperty string, typ entity.Type) {
	t.Helper()
	_, err := h.mappings.Define(context.Background(), mapping.Attribute{
		Slug:            slug,
		Provider:        providerName,
		LinkedAccountID: la.ID(),
		EntityType:      typ,
		RemoteProperty:  remoteProperty,
		DataType:        "string",
	})
	require.NoError(t, err)
}

func (h *harness) descriptor(t *testing.T, typ entity.Type) entity.Descriptor {
	t.Helper()
	desc, err := h.catalog.Get(typ)
	require.NoError(t, err)
	return desc
}
