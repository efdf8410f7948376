package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/event"
	"github.com/unifiedsync/syncd/domain/mapping"
	"github.com/unifiedsync/syncd/domain/provider"
	"github.com/unifiedsync/syncd/domain/record"
	"github.com/unifiedsync/syncd/domain/store"
	"github.com/unifiedsync/syncd/domain/tenant"
	"github.com/unifiedsync/syncd/domain/unification"
	"github.com/unifiedsync/syncd/internal/log"
	"github.com/unifiedsync/syncd/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Defaults for SyncOption values.
const (
	DefaultSyncConcurrency = 8
	DefaultAdapterTimeout  = 30 * time.Second
)

// TenantFilter narrows a SyncAll run. Empty fields match everything.
type TenantFilter struct {
	TenantID        string
	ProjectID       string
	LinkedAccountID string
	Provider        string
}

// Report summarizes a SyncAll run.
type Report struct {
	Jobs      int
	Succeeded int
	Skipped   int
	Failed    int
}

// SyncOption configures a Sync.
type SyncOption func(*Sync)

// WithConcurrency bounds the number of pipeline runs in flight.
func WithConcurrency(n int) SyncOption {
	return func(s *Sync) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithAdapterTimeout bounds each adapter fetch.
func WithAdapterTimeout(d time.Duration) SyncOption {
	return func(s *Sync) {
		if d > 0 {
			s.adapterTimeout = d
		}
	}
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *metrics.Metrics) SyncOption {
	return func(s *Sync) {
		s.metrics = m
	}
}

// WithKeyLock shares the per-connection write lock with other writers.
func WithKeyLock(l *KeyLock) SyncOption {
	return func(s *Sync) {
		if l != nil {
			s.locks = l
		}
	}
}

// Sync runs the fetch, unify, persist and notify pipeline for entity types
// across the tenancy hierarchy.
type Sync struct {
	catalog     entity.Catalog
	directory   tenant.Directory
	connections tenant.ConnectionStore
	mappings    mapping.Store
	adapters    *provider.Registry
	engine      *unification.Engine
	records     record.Store
	notifier    *Notifier
	locks       *KeyLock
	metrics     *metrics.Metrics
	logger      *slog.Logger

	concurrency    int
	adapterTimeout time.Duration
}

// NewSync creates a new Sync orchestrator.
func NewSync(
	catalog entity.Catalog,
	directory tenant.Directory,
	connections tenant.ConnectionStore,
	mappings mapping.Store,
	adapters *provider.Registry,
	engine *unification.Engine,
	records record.Store,
	notifier *Notifier,
	logger *slog.Logger,
	opts ...SyncOption,
) *Sync {
	s := &Sync{
		catalog:        catalog,
		directory:      directory,
		connections:    connections,
		mappings:       mappings,
		adapters:       adapters,
		engine:         engine,
		records:        records,
		notifier:       notifier,
		locks:          NewKeyLock(),
		logger:         logger,
		concurrency:    DefaultSyncConcurrency,
		adapterTimeout: DefaultAdapterTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// job is one pipeline run.
type job struct {
	linkedAccountID string
	provider        string
	scopeID         string
	scopeRemoteID   string
}

// SyncAll runs the pipeline for every (linked account, provider, scope)
// matching filter. Failed jobs are logged and joined into the returned error;
// they never cancel their siblings. Missing connections and capabilities
// count as skips.
func (s *Sync) SyncAll(ctx context.Context, t entity.Type, filter TenantFilter) (Report, error) {
	desc, err := s.catalog.Get(t)
	if err != nil {
		return Report{}, err
	}

	jobs, err := s.plan(ctx, desc, filter)
	if err != nil {
		return Report{}, fmt.Errorf("plan %s sync: %w", t, err)
	}

	report := Report{Jobs: len(jobs)}
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			err := s.run(ctx, desc, j)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Succeeded++
			case isSkip(err):
				report.Skipped++
			default:
				report.Failed++
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "sync finished",
		slog.String("entity_type", t.String()),
		slog.Int("jobs", report.Jobs),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return report, errors.Join(errs...)
}

// SyncConnection runs one pipeline and returns its error. For scoped types
// scopeID is the canonical id of the parent record; when it is empty every
// parent of the connection is synced in turn.
func (s *Sync) SyncConnection(ctx context.Context, t entity.Type, linkedAccountID, providerName, scopeID string) error {
	desc, err := s.catalog.Get(t)
	if err != nil {
		return err
	}

	j := job{linkedAccountID: linkedAccountID, provider: providerName}
	if desc.Scope != nil {
		if scopeID == "" {
			return s.syncScopes(ctx, desc, j)
		}
		parent, err := s.catalog.Get(desc.Scope.Parent)
		if err != nil {
			return err
		}
		scope, err := s.records.Get(ctx, parent, scopeID)
		if err != nil {
			return fmt.Errorf("load scope: %w", err)
		}
		j.scopeID = scope.ID()
		j.scopeRemoteID = scope.RemoteID()
	}
	return s.run(ctx, desc, j)
}

// syncScopes runs j once per parent record of its connection.
func (s *Sync) syncScopes(ctx context.Context, desc entity.Descriptor, j job) error {
	_, err := s.connections.Find(ctx, j.linkedAccountID, j.provider, desc.Type.Vertical())
	if errors.Is(err, tenant.ErrNoConnection) {
		return s.run(ctx, desc, j)
	}
	if err != nil {
		return fmt.Errorf("find connection: %w", err)
	}

	jobs, err := s.scopedJobs(ctx, desc, j.linkedAccountID, j.provider)
	if err != nil {
		return err
	}
	var errs []error
	for _, scoped := range jobs {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := s.run(ctx, desc, scoped); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sync) plan(ctx context.Context, desc entity.Descriptor, filter TenantFilter) ([]job, error) {
	accounts, err := s.linkedAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}

	var jobs []job
	for _, la := range accounts {
		for _, p := range desc.Providers {
			if filter.Provider != "" && p != filter.Provider {
				continue
			}
			if desc.Scope == nil {
				jobs = append(jobs, job{linkedAccountID: la.ID(), provider: p})
				continue
			}
			scoped, err := s.scopedJobs(ctx, desc, la.ID(), p)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, scoped...)
		}
	}
	return jobs, nil
}

func (s *Sync) linkedAccounts(ctx context.Context, filter TenantFilter) ([]tenant.LinkedAccount, error) {
	if filter.LinkedAccountID != "" {
		la, err := s.directory.LinkedAccount(ctx, filter.LinkedAccountID)
		if err != nil {
			return nil, fmt.Errorf("load linked account: %w", err)
		}
		return []tenant.LinkedAccount{la}, nil
	}

	tenants, err := s.directory.Tenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	var out []tenant.LinkedAccount
	for _, tn := range tenants {
		if filter.TenantID != "" && tn.ID() != filter.TenantID {
			continue
		}
		projects, err := s.directory.Projects(ctx, tn.ID())
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		for _, p := range projects {
			if filter.ProjectID != "" && p.ID() != filter.ProjectID {
				continue
			}
			accounts, err := s.directory.LinkedAccounts(ctx, p.ID())
			if err != nil {
				return nil, fmt.Errorf("list linked accounts: %w", err)
			}
			out = append(out, accounts...)
		}
	}
	return out, nil
}

// scopedJobs expands a scoped type into one job per parent record of the
// connection. No connection means no parents and so no jobs.
func (s *Sync) scopedJobs(ctx context.Context, desc entity.Descriptor, linkedAccountID, providerName string) ([]job, error) {
	conn, err := s.connections.Find(ctx, linkedAccountID, providerName, desc.Type.Vertical())
	if errors.Is(err, tenant.ErrNoConnection) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find connection: %w", err)
	}

	parent, err := s.catalog.Get(desc.Scope.Parent)
	if err != nil {
		return nil, err
	}
	parents, err := s.records.List(ctx, parent, store.WithConnectionID(conn.ID()))
	if err != nil {
		return nil, fmt.Errorf("list %s scopes: %w", parent.Type, err)
	}

	jobs := make([]job, 0, len(parents))
	for _, p := range parents {
		jobs = append(jobs, job{
			linkedAccountID: linkedAccountID,
			provider:        providerName,
			scopeID:         p.ID(),
			scopeRemoteID:   p.RemoteID(),
		})
	}
	return jobs, nil
}

func (s *Sync) run(ctx context.Context, desc entity.Descriptor, j job) error {
	start := time.Now()
	ctx, _ = log.StartSyncRun(ctx)
	t := desc.Type.String()

	logger := s.logger.With(
		slog.String("entity_type", t),
		slog.String("provider", j.provider),
		slog.String("linked_account_id", j.linkedAccountID),
	)
	if j.scopeID != "" {
		logger = logger.With(slog.String("scope_id", j.scopeID))
	}

	conn, err := s.connections.Find(ctx, j.linkedAccountID, j.provider, desc.Type.Vertical())
	if err != nil {
		if errors.Is(err, tenant.ErrNoConnection) {
			logger.WarnContext(ctx, "no connection, skipping")
			s.metrics.PipelineRun(t, j.provider, metrics.OutcomeSkipped, 0)
			return err
		}
		logger.ErrorContext(ctx, "connection lookup failed", slog.String("error", err.Error()))
		s.metrics.PipelineRun(t, j.provider, metrics.OutcomeFailed, time.Since(start))
		return fmt.Errorf("find connection: %w", err)
	}

	n, err := s.pipeline(ctx, desc, conn, j, logger)
	if err != nil {
		if isSkip(err) {
			logger.DebugContext(ctx, "provider cannot serve entity type, skipping", slog.String("reason", err.Error()))
			s.metrics.PipelineRun(t, j.provider, metrics.OutcomeSkipped, 0)
			return err
		}

		logger.ErrorContext(ctx, "sync failed", slog.String("error", err.Error()))
		s.metrics.PipelineRun(t, j.provider, metrics.OutcomeFailed, time.Since(start))
		if _, ferr := s.notifier.RecordAndNotify(context.WithoutCancel(ctx), Notification{
			EntityType: desc.Type,
			Connection: conn,
			Status:     event.StatusFail,
		}); ferr != nil {
			logger.ErrorContext(ctx, "failed to record failure event", slog.String("error", ferr.Error()))
		}
		return err
	}

	s.metrics.PipelineRun(t, j.provider, metrics.OutcomeSuccess, time.Since(start))
	logger.InfoContext(ctx, "sync completed",
		slog.Int("records", n),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// pipeline runs the stages after the connection is known and returns the
// number of records persisted.
func (s *Sync) pipeline(ctx context.Context, desc entity.Descriptor, conn tenant.Connection, j job, logger *slog.Logger) (int, error) {
	t := desc.Type

	adapter, ok := s.adapters.Capability(j.provider, t)
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", provider.ErrMissingCapability, j.provider, t)
	}
	if !s.engine.Supports(j.provider, t) {
		return 0, fmt.Errorf("%w: %s/%s", unification.ErrNoRuleSet, j.provider, t)
	}

	mappings, err := s.mappings.Resolve(ctx, j.provider, j.linkedAccountID, t)
	if err != nil {
		return 0, fmt.Errorf("resolve field mappings: %w", err)
	}

	resp, err := s.fetch(ctx, adapter, provider.FetchRequest{
		EntityType:       t,
		LinkedAccountID:  j.linkedAccountID,
		ScopeID:          j.scopeID,
		ScopeRemoteID:    j.scopeRemoteID,
		RemoteProperties: mapping.RemoteProperties(mappings),
	})
	if err != nil {
		return 0, &provider.FetchError{Provider: j.provider, EntityType: t, Err: err}
	}

	result, err := s.engine.Unify(resp.Data, j.provider, t, mappings)
	if err != nil {
		return 0, err
	}
	for _, w := range result.Warnings {
		logger.WarnContext(ctx, "record dropped", slog.String("warning", w.Error()))
	}
	s.metrics.TransformWarnings(t.String(), j.provider, len(result.Warnings))

	unlock := s.locks.Lock(conn.ID())
	stored, err := s.records.Persist(ctx, record.PersistRequest{
		Connection: conn,
		Descriptor: desc,
		Records:    result.Records,
		ScopeID:    j.scopeID,
	})
	unlock()
	if err != nil {
		return 0, fmt.Errorf("persist: %w", err)
	}
	s.metrics.RecordsPersisted(t.String(), j.provider, len(stored))

	// The batch is committed; a lost event does not undo it.
	if _, err := s.notifier.RecordAndNotify(ctx, Notification{
		Records:    stored,
		EntityType: t,
		Connection: conn,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to record sync event", slog.String("error", err.Error()))
	}
	return len(stored), nil
}

func (s *Sync) fetch(ctx context.Context, adapter provider.Adapter, req provider.FetchRequest) (provider.FetchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
	defer cancel()
	return adapter.Fetch(ctx, req)
}

// isSkip reports whether err means the job had nothing to do.
func isSkip(err error) bool {
	return errors.Is(err, tenant.ErrNoConnection) ||
		errors.Is(err, provider.ErrMissingCapability) ||
		errors.Is(err, unification.ErrNoRuleSet)
}
