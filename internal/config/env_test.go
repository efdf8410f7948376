package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, "", cfg.DBURL)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.Equal(t, "", cfg.APIKeys)
	assert.Equal(t, 1, cfg.WorkerCount)
	assert.Equal(t, 8, cfg.SyncConcurrency)
	assert.Equal(t, 30.0, cfg.AdapterTimeoutSeconds)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, "", cfg.SyncCron)
	assert.Equal(t, "latest", cfg.ValueRetention)
	assert.True(t, cfg.MetricsEnabled)

	assert.Equal(t, "", cfg.Webhook.URL)
	assert.Equal(t, 10.0, cfg.Webhook.TimeoutSeconds)
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, "syncd:webhooks", cfg.Redis.Stream)
}

func TestEnvDefaults_MatchConfigDefaults(t *testing.T) {
	// Struct tag defaults must be literals, so keep them in sync with config.go.
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount)
	assert.Equal(t, DefaultSyncConcurrency, cfg.SyncConcurrency)
	assert.Equal(t, DefaultAdapterTimeout.Seconds(), cfg.AdapterTimeoutSeconds)
	assert.Equal(t, DefaultWebhookTimeout.Seconds(), cfg.Webhook.TimeoutSeconds)
	assert.Equal(t, DefaultValueRetention, cfg.ValueRetention)
	assert.Equal(t, DefaultRedisStream, cfg.Redis.Stream)
}

func TestLoadFromEnv_OverrideValues(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_URL", "postgres://u:p@db:5432/syncd")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("API_KEYS", "a, b ,,c")
	t.Setenv("CORS_ORIGINS", "https://app.example.com")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("SYNC_CONCURRENCY", "2")
	t.Setenv("ADAPTER_TIMEOUT_SECONDS", "1.5")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("SYNC_CRON", "*/5 * * * *")
	t.Setenv("VALUE_RETENTION", "History")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/in")
	t.Setenv("WEBHOOK_TIMEOUT_SECONDS", "3")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_STREAM", "events")

	env, err := LoadFromEnv()
	require.NoError(t, err)
	cfg := env.ToAppConfig()

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "postgres://u:p@db:5432/syncd", cfg.DBURL())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
	assert.Equal(t, []string{"a", "b", "c"}, cfg.APIKeys())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSOrigins())
	assert.Equal(t, 4, cfg.WorkerCount())
	assert.Equal(t, 2, cfg.SyncConcurrency())
	assert.Equal(t, 1500*time.Millisecond, cfg.AdapterTimeout())
	assert.False(t, cfg.Scheduler().Enabled())
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler().Cron())
	assert.Equal(t, "history", cfg.ValueRetention())
	assert.True(t, cfg.Webhook().IsConfigured())
	assert.Equal(t, 3*time.Second, cfg.Webhook().Timeout())
	assert.True(t, cfg.Redis().IsConfigured())
	assert.Equal(t, 2, cfg.Redis().DB())
	assert.Equal(t, "events", cfg.Redis().Stream())
}

func TestLoadDotEnv_NonExistent(t *testing.T) {
	clearEnvVars(t)

	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/config/data
LOG_LEVEL=WARN
PROVIDERS_FILE=/config/providers.yaml
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	clearEnvVars(t)

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/config/data", cfg.DataDir())
	assert.Equal(t, "sqlite:////config/data/syncd.db", cfg.DBURL())
	assert.Equal(t, "WARN", cfg.LogLevel())
	assert.Equal(t, "/config/providers.yaml", cfg.ProvidersFile())
}

func TestLoadConfig_EnvironmentWinsOverDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=WARN\n"), 0o644))

	clearEnvVars(t)
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.LogLevel())
}

// clearEnvVars unsets every variable the config reads and restores the
// original values when the test ends.
func clearEnvVars(t *testing.T) {
	t.Helper()

	vars := []string{
		"HOST", "PORT", "DATA_DIR", "DB_URL", "LOG_LEVEL", "LOG_FORMAT",
		"API_KEYS", "CORS_ORIGINS", "WORKER_COUNT", "SYNC_CONCURRENCY",
		"ADAPTER_TIMEOUT_SECONDS", "SCHEDULER_ENABLED", "SYNC_CRON",
		"VALUE_RETENTION", "RULES_DIR", "PROVIDERS_FILE",
		"WEBHOOK_URL", "WEBHOOK_TIMEOUT_SECONDS",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_STREAM",
		"METRICS_ENABLED",
	}

	for _, v := range vars {
		t.Setenv(v, "")
		_ = os.Unsetenv(v)
	}
}
