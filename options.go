package syncd

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/provider"
	"github.com/unifiedsync/syncd/domain/unification"
	"github.com/unifiedsync/syncd/domain/webhook"
	"github.com/unifiedsync/syncd/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL            string
	dataDir          string
	logger           *slog.Logger
	workerCount      int
	workerPollPeriod time.Duration
	syncConcurrency  int
	adapterTimeout   time.Duration
	scheduler        config.SchedulerConfig
	valueRetention   string
	rulesDir         string
	providersFile    string
	webhook          config.WebhookConfig
	redis            config.RedisConfig
	metricsEnabled   bool
	catalog          entity.Catalog
	engine           *unification.Engine
	adapters         []provider.Adapter
	dispatchers      []webhook.Dispatcher
	closers          []io.Closer
}

func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:         config.DefaultDataDir(),
		workerCount:     config.DefaultWorkerCount,
		syncConcurrency: config.DefaultSyncConcurrency,
		adapterTimeout:  config.DefaultAdapterTimeout,
		scheduler:       config.NewSchedulerConfig(),
		valueRetention:  config.DefaultValueRetention,
		webhook:         config.NewWebhookConfig(),
		redis:           config.NewRedisConfig(),
		metricsEnabled:  true,
	}
}

// databaseURL returns the configured URL or the sqlite file in the data dir.
func (c *clientConfig) databaseURL() string {
	if c.dbURL != "" {
		return c.dbURL
	}
	return "sqlite:///" + filepath.Join(c.dataDir, config.DefaultDatabaseFilename)
}

// Option configures the Client.
type Option func(*clientConfig)

// WithAppConfig applies every setting of an AppConfig, as loaded from the
// environment by the CLI.
func WithAppConfig(cfg config.AppConfig) Option {
	return func(c *clientConfig) {
		c.dbURL = cfg.DBURL()
		c.dataDir = cfg.DataDir()
		c.workerCount = cfg.WorkerCount()
		c.syncConcurrency = cfg.SyncConcurrency()
		c.adapterTimeout = cfg.AdapterTimeout()
		c.scheduler = cfg.Scheduler()
		c.valueRetention = cfg.ValueRetention()
		c.rulesDir = cfg.RulesDir()
		c.providersFile = cfg.ProvidersFile()
		c.webhook = cfg.Webhook()
		c.redis = cfg.Redis()
		c.metricsEnabled = cfg.MetricsEnabled()
	}
}

// WithDatabaseURL sets the database URL (sqlite:///path or postgres://...).
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithSQLite configures a SQLite database file.
func WithSQLite(path string) Option {
	return WithDatabaseURL("sqlite:///" + path)
}

// WithPostgres configures a PostgreSQL database.
func WithPostgres(dsn string) Option {
	return WithDatabaseURL(dsn)
}

// WithDataDir sets the data directory. The default database lives there.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithWorkerCount sets the number of background worker goroutines.
// Values <= 0 are ignored.
func WithWorkerCount(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithWorkerPollPeriod sets how often the background worker checks for new tasks.
func WithWorkerPollPeriod(d time.Duration) Option {
	return func(c *clientConfig) {
		c.workerPollPeriod = d
	}
}

// WithSyncConcurrency bounds the parallel pipeline runs of one sync.
func WithSyncConcurrency(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.syncConcurrency = n
		}
	}
}

// WithAdapterTimeout bounds each provider fetch.
func WithAdapterTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.adapterTimeout = d
		}
	}
}

// WithScheduler sets the recurring sync schedule.
func WithScheduler(s config.SchedulerConfig) Option {
	return func(c *clientConfig) {
		c.scheduler = s
	}
}

// WithValueRetention sets how many custom field value sets are kept per
// record: "latest", "all" or a positive number.
func WithValueRetention(r string) Option {
	return func(c *clientConfig) {
		c.valueRetention = r
	}
}

// WithRulesDir overlays transform rule files from dir on the builtin rules.
func WithRulesDir(dir string) Option {
	return func(c *clientConfig) {
		c.rulesDir = dir
	}
}

// WithProvidersFile registers the REST providers declared in a YAML file.
func WithProvidersFile(path string) Option {
	return func(c *clientConfig) {
		c.providersFile = path
	}
}

// WithAdapters registers provider adapters in addition to the configured ones.
// A later adapter replaces an earlier one with the same provider name.
func WithAdapters(adapters ...provider.Adapter) Option {
	return func(c *clientConfig) {
		c.adapters = append(c.adapters, adapters...)
	}
}

// WithCatalog replaces the builtin entity catalog.
func WithCatalog(catalog entity.Catalog) Option {
	return func(c *clientConfig) {
		c.catalog = catalog
	}
}

// WithEngine replaces the unification engine built from the rule files.
func WithEngine(e *unification.Engine) Option {
	return func(c *clientConfig) {
		c.engine = e
	}
}

// WithWebhook posts notifications to an HTTP endpoint.
func WithWebhook(w config.WebhookConfig) Option {
	return func(c *clientConfig) {
		c.webhook = w
	}
}

// WithRedis appends notifications to a Redis stream.
func WithRedis(r config.RedisConfig) Option {
	return func(c *clientConfig) {
		c.redis = r
	}
}

// WithDispatcher adds a webhook dispatcher.
func WithDispatcher(d webhook.Dispatcher) Option {
	return func(c *clientConfig) {
		c.dispatchers = append(c.dispatchers, d)
	}
}

// WithMetrics enables or disables the Prometheus collectors.
func WithMetrics(enabled bool) Option {
	return func(c *clientConfig) {
		c.metricsEnabled = enabled
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(cl io.Closer) Option {
	return func(c *clientConfig) {
		c.closers = append(c.closers, cl)
	}
}
