// Package syncd provides a multi-tenant ingestion engine that pulls entity
// data from third-party providers, unifies it into canonical records,
// persists it and notifies subscribers.
//
// Basic usage:
//
//	client, err := syncd.New(
//	    syncd.WithSQLite(".syncd/syncd.db"),
//	    syncd.WithProvidersFile("providers.yaml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Sync one entity type for every linked account
//	report, err := client.Syncs.SyncAll(ctx, entity.ATSAttachment, service.TenantFilter{})
//
//	// Read the canonical records
//	page, err := client.Records.List(ctx, entity.ATSAttachment, service.ListParams{Limit: 20})
package syncd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/unifiedsync/syncd/application/service"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/provider"
	"github.com/unifiedsync/syncd/domain/record"
	"github.com/unifiedsync/syncd/domain/webhook"
	"github.com/unifiedsync/syncd/infrastructure/persistence"
	restprovider "github.com/unifiedsync/syncd/infrastructure/provider"
	"github.com/unifiedsync/syncd/infrastructure/rules"
	infrawebhook "github.com/unifiedsync/syncd/infrastructure/webhook"
	"github.com/unifiedsync/syncd/internal/config"
	"github.com/unifiedsync/syncd/internal/database"
	"github.com/unifiedsync/syncd/internal/metrics"
)

// ErrClientClosed is returned when using a closed client.
var ErrClientClosed = service.ErrClientClosed

// Client is the main entry point for the syncd library.
// The background worker starts automatically on creation, and the sync
// scheduler too when it is enabled.
//
// Access resources via struct fields:
//
//	client.Syncs.SyncConnection(ctx, entity.CRMDeal, linkedAccountID, "hubspot", "")
//	client.Records.Get(ctx, entity.CRMDeal, id, true)
//	client.Queue.EnqueueSync(ctx, service.SyncRequest{EntityType: entity.CRMDeal}, task.PriorityUserInitiated)
type Client struct {
	Syncs       *service.Sync
	Records     *service.Records
	Queue       *service.Queue
	Scheduler   *service.Scheduler
	Tenants     persistence.TenantStore
	Connections persistence.ConnectionStore
	Mappings    persistence.MappingStore
	Events      persistence.EventStore
	Catalog     entity.Catalog
	Adapters    *provider.Registry

	db       database.Database
	tasks    persistence.TaskStore
	registry *service.Registry
	worker   *service.Worker
	metrics  *metrics.Metrics

	scheduleEnabled bool
	closers         []io.Closer
	logger          *slog.Logger
	closed          atomic.Bool
	mu              sync.Mutex
}

// New creates a new Client with the given options.
// The background worker is started automatically.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.dbURL == "" {
		if _, err := config.PrepareDataDir(cfg.dataDir); err != nil {
			return nil, err
		}
	}

	retention, err := record.ParseRetention(cfg.valueRetention)
	if err != nil {
		return nil, fmt.Errorf("value retention: %w", err)
	}

	catalog := cfg.catalog
	if len(catalog.Types()) == 0 {
		catalog = entity.Builtin()
	}

	engine := cfg.engine
	if engine == nil {
		engine, err = rules.LoadEngine(cfg.rulesDir)
		if err != nil {
			return nil, fmt.Errorf("load transform rules: %w", err)
		}
	}

	var m *metrics.Metrics
	if cfg.metricsEnabled {
		m = metrics.New()
	}

	adapters, err := buildAdapters(cfg, m)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	dispatcher, closers, err := buildDispatcher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, cfg.closers...)

	db, err := database.NewDatabase(ctx, cfg.databaseURL())
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open database: %w", err), closeAll(closers))
	}

	if err := persistence.AutoMigrate(db, catalog); err != nil {
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), db.Close(), closeAll(closers))
	}

	tenants := persistence.NewTenantStore(db)
	connections := persistence.NewConnectionStore(db)
	mappings := persistence.NewMappingStore(db)
	events := persistence.NewEventStore(db)
	records := persistence.NewRecordStore(db, catalog, persistence.WithRetention(retention))
	tasks := persistence.NewTaskStore(db)

	locks := service.NewKeyLock()
	notifier := service.NewNotifier(events, dispatcher, m, logger)
	queue := service.NewQueue(tasks, m, logger)
	registry := service.NewRegistry()

	worker := service.NewWorker(tasks, registry, logger).WithCount(cfg.workerCount)
	if cfg.workerPollPeriod > 0 {
		worker.WithPollPeriod(cfg.workerPollPeriod)
	}

	client := &Client{
		Syncs: service.NewSync(catalog, tenants, connections, mappings, adapters, engine, records, notifier, logger,
			service.WithConcurrency(cfg.syncConcurrency),
			service.WithAdapterTimeout(cfg.adapterTimeout),
			service.WithMetrics(m),
			service.WithKeyLock(locks),
		),
		Records:     service.NewRecords(catalog, records, connections, mappings, adapters, engine, notifier, locks, logger),
		Queue:       queue,
		Scheduler:   service.NewScheduler(logger),
		Tenants:     tenants,
		Connections: connections,
		Mappings:    mappings,
		Events:      events,
		Catalog:     catalog,
		Adapters:    adapters,

		db:              db,
		tasks:           tasks,
		registry:        registry,
		worker:          worker,
		metrics:         m,
		scheduleEnabled: cfg.scheduler.Enabled(),
		closers:         closers,
		logger:          logger,
	}

	client.registerHandlers()
	if err := client.validateHandlers(); err != nil {
		return nil, errors.Join(err, db.Close(), closeAll(closers))
	}

	if client.scheduleEnabled {
		if err := service.ScheduleSyncs(client.Scheduler, catalog, queue, cfg.scheduler.Cron()); err != nil {
			return nil, errors.Join(fmt.Errorf("schedule syncs: %w", err), db.Close(), closeAll(closers))
		}
	}

	logger.Info("syncd client ready",
		slog.Int("entity_types", len(catalog.Types())),
		slog.Any("providers", adapters.Providers()),
		slog.Int("rule_sets", engine.Len()),
		slog.Bool("scheduler", client.scheduleEnabled),
	)

	worker.Start(ctx)
	if client.scheduleEnabled {
		client.Scheduler.Start(ctx)
	}

	return client, nil
}

// Close releases all resources and stops the background worker.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Scheduler.Stop()
	c.worker.Stop()

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("syncd client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Metrics returns the client's collectors, or nil when metrics are disabled.
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// Ping checks the database connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	sqlDB, err := c.db.GORM().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// buildAdapters registers the providers from the providers file, then the
// adapters passed as options.
func buildAdapters(cfg *clientConfig, m *metrics.Metrics) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	if cfg.providersFile != "" {
		defs, err := restprovider.LoadFile(cfg.providersFile)
		if err != nil {
			return nil, fmt.Errorf("load providers: %w", err)
		}
		var opts []restprovider.Option
		if m != nil {
			opts = append(opts, restprovider.WithObserver(m))
		}
		for _, a := range restprovider.NewAll(defs, opts...) {
			registry.Register(a)
		}
	}
	for _, a := range cfg.adapters {
		registry.Register(a)
	}
	return registry, nil
}

// buildDispatcher combines the configured webhook transports.
func buildDispatcher(ctx context.Context, cfg *clientConfig) (webhook.Dispatcher, []io.Closer, error) {
	var dispatchers []webhook.Dispatcher
	var closers []io.Closer

	if cfg.webhook.IsConfigured() {
		dispatchers = append(dispatchers, infrawebhook.NewHTTPDispatcher(cfg.webhook.URL(), cfg.webhook.Timeout()))
	}
	if cfg.redis.IsConfigured() {
		r, err := infrawebhook.NewRedisDispatcher(ctx, infrawebhook.RedisOptions{
			Addr:     cfg.redis.Addr(),
			Password: cfg.redis.Password(),
			DB:       cfg.redis.DB(),
			Stream:   cfg.redis.Stream(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		dispatchers = append(dispatchers, r)
		closers = append(closers, r)
	}
	dispatchers = append(dispatchers, cfg.dispatchers...)

	switch len(dispatchers) {
	case 0:
		return infrawebhook.Noop{}, closers, nil
	case 1:
		return dispatchers[0], closers, nil
	}
	return infrawebhook.Fanout(dispatchers), closers, nil
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
