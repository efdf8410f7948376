// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8080
	DefaultLogLevel         = "INFO"
	DefaultWorkerCount      = 1
	DefaultSyncConcurrency  = 8
	DefaultAdapterTimeout   = 30 * time.Second
	DefaultWebhookTimeout   = 10 * time.Second
	DefaultValueRetention   = "latest"
	DefaultRedisStream      = "syncd:webhooks"
	DefaultDatabaseFilename = "syncd.db"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// SchedulerConfig configures the recurring sync schedule.
type SchedulerConfig struct {
	enabled bool
	cron    string
}

// NewSchedulerConfig creates a SchedulerConfig with defaults: enabled, each
// entity type on its own schedule.
func NewSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{enabled: true}
}

// Enabled returns whether recurring syncs are registered.
func (s SchedulerConfig) Enabled() bool { return s.enabled }

// Cron returns the expression overriding every entity type's schedule, or
// empty to keep each type's own.
func (s SchedulerConfig) Cron() string { return s.cron }

// WithEnabled returns a new config with the specified enabled state.
func (s SchedulerConfig) WithEnabled(enabled bool) SchedulerConfig {
	s.enabled = enabled
	return s
}

// WithCron returns a new config with the specified override expression.
func (s SchedulerConfig) WithCron(expr string) SchedulerConfig {
	s.cron = strings.TrimSpace(expr)
	return s
}

// WebhookConfig configures webhook delivery over HTTP.
type WebhookConfig struct {
	url     string
	timeout time.Duration
}

// NewWebhookConfig creates a WebhookConfig with defaults.
func NewWebhookConfig() WebhookConfig {
	return WebhookConfig{timeout: DefaultWebhookTimeout}
}

// URL returns the endpoint deliveries are POSTed to.
func (w WebhookConfig) URL() string { return w.url }

// Timeout returns the per-delivery timeout.
func (w WebhookConfig) Timeout() time.Duration { return w.timeout }

// IsConfigured returns true if a URL is set.
func (w WebhookConfig) IsConfigured() bool { return w.url != "" }

// WithURL returns a new config with the specified URL.
func (w WebhookConfig) WithURL(url string) WebhookConfig {
	w.url = url
	return w
}

// WithTimeout returns a new config with the specified timeout.
func (w WebhookConfig) WithTimeout(d time.Duration) WebhookConfig {
	if d > 0 {
		w.timeout = d
	}
	return w
}

// RedisConfig configures webhook delivery onto a Redis stream.
type RedisConfig struct {
	addr     string
	password string
	db       int
	stream   string
}

// NewRedisConfig creates a RedisConfig with defaults.
func NewRedisConfig() RedisConfig {
	return RedisConfig{stream: DefaultRedisStream}
}

// Addr returns the host:port of the Redis server.
func (r RedisConfig) Addr() string { return r.addr }

// Password returns the Redis password.
func (r RedisConfig) Password() string { return r.password }

// DB returns the Redis database number.
func (r RedisConfig) DB() int { return r.db }

// Stream returns the stream deliveries are appended to.
func (r RedisConfig) Stream() string { return r.stream }

// IsConfigured returns true if an address is set.
func (r RedisConfig) IsConfigured() bool { return r.addr != "" }

// RedisConfigOption is a functional option for RedisConfig.
type RedisConfigOption func(*RedisConfig)

// WithRedisAddr sets the address.
func WithRedisAddr(addr string) RedisConfigOption {
	return func(r *RedisConfig) { r.addr = addr }
}

// WithRedisPassword sets the password.
func WithRedisPassword(password string) RedisConfigOption {
	return func(r *RedisConfig) { r.password = password }
}

// WithRedisDB sets the database number.
func WithRedisDB(db int) RedisConfigOption {
	return func(r *RedisConfig) { r.db = db }
}

// WithRedisStream sets the stream name.
func WithRedisStream(stream string) RedisConfigOption {
	return func(r *RedisConfig) {
		if stream != "" {
			r.stream = stream
		}
	}
}

// NewRedisConfigWithOptions creates a RedisConfig with options.
func NewRedisConfigWithOptions(opts ...RedisConfigOption) RedisConfig {
	r := NewRedisConfig()
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host            string
	port            int
	dataDir         string
	dbURL           string
	logLevel        string
	logFormat       LogFormat
	apiKeys         []string
	corsOrigins     []string
	workerCount     int
	syncConcurrency int
	adapterTimeout  time.Duration
	scheduler       SchedulerConfig
	valueRetention  string
	rulesDir        string
	providersFile   string
	webhook         WebhookConfig
	redis           RedisConfig
	metricsEnabled  bool
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".syncd"
	}
	return filepath.Join(home, ".syncd")
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:            DefaultHost,
		port:            DefaultPort,
		dataDir:         dataDir,
		dbURL:           "sqlite:///" + filepath.Join(dataDir, DefaultDatabaseFilename),
		logLevel:        DefaultLogLevel,
		logFormat:       LogFormatPretty,
		apiKeys:         []string{},
		corsOrigins:     []string{},
		workerCount:     DefaultWorkerCount,
		syncConcurrency: DefaultSyncConcurrency,
		adapterTimeout:  DefaultAdapterTimeout,
		scheduler:       NewSchedulerConfig(),
		valueRetention:  DefaultValueRetention,
		webhook:         NewWebhookConfig(),
		redis:           NewRedisConfig(),
		metricsEnabled:  true,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log verbosity level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log output format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns a copy of the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// CORSOrigins returns a copy of the allowed CORS origins.
func (c AppConfig) CORSOrigins() []string {
	origins := make([]string, len(c.corsOrigins))
	copy(origins, c.corsOrigins)
	return origins
}

// WorkerCount returns the number of queue workers.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// SyncConcurrency returns the bound on concurrent pipeline runs per sync.
func (c AppConfig) SyncConcurrency() int { return c.syncConcurrency }

// AdapterTimeout returns the per-call adapter timeout.
func (c AppConfig) AdapterTimeout() time.Duration { return c.adapterTimeout }

// Scheduler returns the recurring schedule config.
func (c AppConfig) Scheduler() SchedulerConfig { return c.scheduler }

// ValueRetention returns the custom value retention policy name.
func (c AppConfig) ValueRetention() string { return c.valueRetention }

// RulesDir returns the directory of transform rule overrides.
func (c AppConfig) RulesDir() string { return c.rulesDir }

// ProvidersFile returns the REST adapter configuration file path.
func (c AppConfig) ProvidersFile() string { return c.providersFile }

// Webhook returns the HTTP webhook config.
func (c AppConfig) Webhook() WebhookConfig { return c.webhook }

// Redis returns the Redis stream config.
func (c AppConfig) Redis() RedisConfig { return c.redis }

// MetricsEnabled returns whether /metrics is served.
func (c AppConfig) MetricsEnabled() bool { return c.metricsEnabled }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory. The default SQLite URL follows it.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		defaultURL := "sqlite:///" + filepath.Join(c.dataDir, DefaultDatabaseFilename)
		c.dataDir = dir
		if c.dbURL == defaultURL {
			c.dbURL = "sqlite:///" + filepath.Join(dir, DefaultDatabaseFilename)
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) {
		c.corsOrigins = make([]string, len(origins))
		copy(c.corsOrigins, origins)
	}
}

// WithWorkerCount sets the number of queue workers.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithSyncConcurrency sets the fan-out bound.
func WithSyncConcurrency(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.syncConcurrency = n
		}
	}
}

// WithAdapterTimeout sets the per-call adapter timeout.
func WithAdapterTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.adapterTimeout = d
		}
	}
}

// WithSchedulerConfig sets the recurring schedule config.
func WithSchedulerConfig(s SchedulerConfig) AppConfigOption {
	return func(c *AppConfig) { c.scheduler = s }
}

// WithValueRetention sets the custom value retention policy.
func WithValueRetention(r string) AppConfigOption {
	return func(c *AppConfig) { c.valueRetention = strings.ToLower(strings.TrimSpace(r)) }
}

// WithRulesDir sets the transform rule override directory.
func WithRulesDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.rulesDir = dir }
}

// WithProvidersFile sets the REST adapter configuration file.
func WithProvidersFile(path string) AppConfigOption {
	return func(c *AppConfig) { c.providersFile = path }
}

// WithWebhookConfig sets the HTTP webhook config.
func WithWebhookConfig(w WebhookConfig) AppConfigOption {
	return func(c *AppConfig) { c.webhook = w }
}

// WithRedisConfig sets the Redis stream config.
func WithRedisConfig(r RedisConfig) AppConfigOption {
	return func(c *AppConfig) { c.redis = r }
}

// WithMetricsEnabled sets whether /metrics is served.
func WithMetricsEnabled(enabled bool) AppConfigOption {
	return func(c *AppConfig) { c.metricsEnabled = enabled }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are masked or shown as counts.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Int("workers", c.workerCount),
		slog.Int("sync_concurrency", c.syncConcurrency),
		slog.Duration("adapter_timeout", c.adapterTimeout),
		slog.Bool("scheduler_enabled", c.scheduler.Enabled()),
		slog.String("sync_cron", c.scheduler.Cron()),
		slog.String("value_retention", c.valueRetention),
		slog.Bool("webhook_http", c.webhook.IsConfigured()),
		slog.Bool("webhook_redis", c.redis.IsConfigured()),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	return parseList(s)
}

// parseList splits a comma-separated string, dropping blanks.
func parseList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
