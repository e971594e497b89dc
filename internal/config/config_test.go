package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty temp dir so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "underwrite.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 20.0, cfg.Server.RateLimitRPS, 0.001)
	assert.Equal(t, 40, cfg.Server.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "internal/parity/testdata/boe", cfg.Parity.FixturesDir)
	assert.Equal(t, "fixtures/boe/BOE_MF_Template_NYC.xlsx", cfg.Parity.WorkbookPath)
	assert.Empty(t, cfg.Parity.Schedule)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "underwrite", cfg.Metrics.Namespace)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/underwrite
log:
  level: debug
  format: console
server:
  port: 9090
metrics:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/underwrite", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Metrics.Enabled)
	// Defaults still apply for unset values
	assert.Equal(t, 40, cfg.Server.RateLimitBurst)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("UNDERWRITE_STORE_DRIVER", "postgres")
	t.Setenv("UNDERWRITE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("UNDERWRITE_SERVER_PORT=3000\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("UNDERWRITE_SERVER_PORT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadEnvBeatsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("UNDERWRITE_SERVER_PORT=3000\n"), 0644))
	t.Setenv("UNDERWRITE_SERVER_PORT", "4000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "underwrite.db"
	cfg.Store.MaxConns = 10
	cfg.Store.MinConns = 2
	cfg.Server.Port = 8080
	cfg.Server.RateLimitRPS = 20
	cfg.Server.RateLimitBurst = 40
	cfg.Log.Level = "info"
	cfg.Parity.FixturesDir = "testdata/boe"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := validDefaults()
		cfg.Server.Port = port

		err := cfg.Validate("serve")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.port must be between 1 and 65535")
	}
}

func TestValidateServe_CollectsEveryProblem(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	cfg.Server.RateLimitBurst = 0
	cfg.Metrics.Path = "metrics"
	cfg.Log.Level = "loud"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "server.rate_limit_burst")
	assert.Contains(t, err.Error(), "metrics.path must start with /")
	assert.Contains(t, err.Error(), `log.level "loud"`)
}

func TestValidateServe_RateLimitOff(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.RateLimitRPS = 0
	cfg.Server.RateLimitBurst = 0
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_ParitySchedule(t *testing.T) {
	cfg := validDefaults()
	for _, spec := range []string{"@hourly", "@every 15m", "0 6 * * MON-FRI"} {
		cfg.Parity.Schedule = spec
		assert.NoError(t, cfg.Validate("serve"), spec)
	}

	cfg.Parity.Schedule = "whenever"
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parity.schedule "whenever" is not a valid cron spec`)
}

func TestValidateServe_WebhookURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.WebhookURL = "https://hooks.example.com/boe"
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Monitoring.WebhookURL = "hooks.example.com/boe"
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.webhook_url must be an http or https URL")
}

func TestValidateStore_Postgres(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/underwrite"
	assert.NoError(t, cfg.Validate("store"))

	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required for postgres")

	cfg.Store.DatabaseURL = "postgres://localhost/underwrite"
	cfg.Store.MinConns = 20
	err = cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.min_conns")
}

func TestValidateStore_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver must be sqlite or postgres, got "mysql"`)
}

func TestValidateParity(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("parity"))

	cfg.Parity.FixturesDir = ""
	err := cfg.Validate("parity")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parity.fixtures_dir is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
