package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., REDIS_ADDR).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.syncd
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/syncd.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of keys accepted on mutating routes.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// CORSOrigins is a comma-separated list of allowed origins.
	// Env: CORS_ORIGINS
	CORSOrigins string `envconfig:"CORS_ORIGINS"`

	// WorkerCount is the number of queue workers.
	// Env: WORKER_COUNT (default: 1)
	WorkerCount int `envconfig:"WORKER_COUNT" default:"1"`

	// SyncConcurrency bounds concurrent pipeline runs within one sync.
	// Env: SYNC_CONCURRENCY (default: 8)
	SyncConcurrency int `envconfig:"SYNC_CONCURRENCY" default:"8"`

	// AdapterTimeoutSeconds bounds each provider call.
	// Env: ADAPTER_TIMEOUT_SECONDS (default: 30)
	AdapterTimeoutSeconds float64 `envconfig:"ADAPTER_TIMEOUT_SECONDS" default:"30"`

	// SchedulerEnabled registers recurring syncs on serve.
	// Env: SCHEDULER_ENABLED (default: true)
	SchedulerEnabled bool `envconfig:"SCHEDULER_ENABLED" default:"true"`

	// SyncCron overrides every entity type's schedule.
	// Env: SYNC_CRON
	SyncCron string `envconfig:"SYNC_CRON"`

	// ValueRetention is "latest" or "history".
	// Env: VALUE_RETENTION (default: latest)
	ValueRetention string `envconfig:"VALUE_RETENTION" default:"latest"`

	// RulesDir holds YAML transform rules that override the builtin ones.
	// Env: RULES_DIR
	RulesDir string `envconfig:"RULES_DIR"`

	// ProvidersFile configures the REST provider adapters.
	// Env: PROVIDERS_FILE
	ProvidersFile string `envconfig:"PROVIDERS_FILE"`

	// Webhook configures HTTP webhook delivery.
	Webhook WebhookEnv `envconfig:"WEBHOOK"`

	// Redis configures Redis stream webhook delivery.
	Redis RedisEnv `envconfig:"REDIS"`

	// MetricsEnabled serves prometheus metrics on /metrics.
	// Env: METRICS_ENABLED (default: true)
	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// WebhookEnv holds environment configuration for HTTP webhooks.
type WebhookEnv struct {
	// URL is the delivery endpoint.
	// Env: WEBHOOK_URL
	URL string `envconfig:"URL"`

	// TimeoutSeconds is the per-delivery timeout.
	// Env: WEBHOOK_TIMEOUT_SECONDS (default: 10)
	TimeoutSeconds float64 `envconfig:"TIMEOUT_SECONDS" default:"10"`
}

// RedisEnv holds environment configuration for the Redis stream.
type RedisEnv struct {
	// Env: REDIS_ADDR
	Addr string `envconfig:"ADDR"`
	// Env: REDIS_PASSWORD
	Password string `envconfig:"PASSWORD"`
	// Env: REDIS_DB (default: 0)
	DB int `envconfig:"DB" default:"0"`
	// Env: REDIS_STREAM (default: syncd:webhooks)
	Stream string `envconfig:"STREAM" default:"syncd:webhooks"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	return LoadFromEnvWithPrefix("")
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "SYNCD" would require SYNCD_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.APIKeys != "" {
		cfg = applyOption(cfg, WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	}
	if e.CORSOrigins != "" {
		cfg = applyOption(cfg, WithCORSOrigins(parseList(e.CORSOrigins)))
	}

	cfg = applyOption(cfg, WithWorkerCount(e.WorkerCount))
	cfg = applyOption(cfg, WithSyncConcurrency(e.SyncConcurrency))
	cfg = applyOption(cfg, WithAdapterTimeout(seconds(e.AdapterTimeoutSeconds)))

	cfg = applyOption(cfg, WithSchedulerConfig(
		NewSchedulerConfig().WithEnabled(e.SchedulerEnabled).WithCron(e.SyncCron),
	))

	if e.ValueRetention != "" {
		cfg = applyOption(cfg, WithValueRetention(e.ValueRetention))
	}
	if e.RulesDir != "" {
		cfg = applyOption(cfg, WithRulesDir(e.RulesDir))
	}
	if e.ProvidersFile != "" {
		cfg = applyOption(cfg, WithProvidersFile(e.ProvidersFile))
	}

	cfg = applyOption(cfg, WithWebhookConfig(e.Webhook.ToWebhookConfig()))
	if e.Redis.IsConfigured() {
		cfg = applyOption(cfg, WithRedisConfig(e.Redis.ToRedisConfig()))
	}
	cfg = applyOption(cfg, WithMetricsEnabled(e.MetricsEnabled))

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// ToWebhookConfig converts WebhookEnv to WebhookConfig.
func (w WebhookEnv) ToWebhookConfig() WebhookConfig {
	return NewWebhookConfig().
		WithURL(w.URL).
		WithTimeout(seconds(w.TimeoutSeconds))
}

// IsConfigured returns true if a Redis address is set.
func (r RedisEnv) IsConfigured() bool {
	return r.Addr != ""
}

// ToRedisConfig converts RedisEnv to RedisConfig.
func (r RedisEnv) ToRedisConfig() RedisConfig {
	return NewRedisConfigWithOptions(
		WithRedisAddr(r.Addr),
		WithRedisPassword(r.Password),
		WithRedisDB(r.DB),
		WithRedisStream(r.Stream),
	)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
