package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Analysis.FallThresholdPct)
	assert.Equal(t, 7, cfg.Analysis.ForwardHorizonDays)
	assert.Equal(t, DefaultSymbols, cfg.Universe.Symbols)
	assert.Equal(t, "2023-01-01", cfg.Universe.Start)
	assert.Equal(t, "2023-12-31", cfg.Universe.End)
	assert.Equal(t, ProviderYahoo, cfg.DataSource.Provider)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.ValidateTelegram(), ErrTelegramNotConfigured)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
analysis:
  fall_threshold_pct: 3.5
  forward_horizon_days: 10
universe:
  symbols: [AAPL, MSFT]
  start: "2022-01-01"
  end: "2022-06-30"
data_source:
  provider: mock
cache:
  enabled: true
  max_age: 12h
telegram:
  chat_id: 42
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("FALLSCOPE_HORIZON", "14")
	t.Setenv("SQLITE_PATH", "/tmp/bars.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateTelegram())

	assert.Equal(t, 3.5, cfg.Analysis.FallThresholdPct)
	assert.Equal(t, 14, cfg.Analysis.ForwardHorizonDays, "env overrides file")
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Universe.Symbols)
	assert.Equal(t, ProviderMock, cfg.DataSource.Provider)
	assert.Equal(t, 12*time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, "/tmp/bars.db", cfg.Cache.SQLitePath)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)

	start, end, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2022, 6, 30, 0, 0, 0, 0, time.UTC), end)
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	path := writeConfig(t, `
data_source:
  requests_per_second: 0
  max_retries: 0
telegram:
  max_charts: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Zero(t, cfg.DataSource.RequestsPerSecond)
	assert.Zero(t, cfg.DataSource.MaxRetries)
	assert.Zero(t, cfg.Telegram.MaxCharts)
	// Untouched keys in the same sections keep their defaults.
	assert.Equal(t, 4, cfg.DataSource.Workers)
	assert.Equal(t, ProviderYahoo, cfg.DataSource.Provider)
	assert.Equal(t, 5.0, cfg.Analysis.FallThresholdPct)
}

func TestLoad_ExplicitZeroThresholdRejected(t *testing.T) {
	cfg, err := Load(writeConfig(t, "analysis:\n  fall_threshold_pct: 0\n"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestLoad_BadInput(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis: [oops"))
	assert.Error(t, err)

	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative threshold", func(c *Config) { c.Analysis.FallThresholdPct = -1 }},
		{"horizon too long", func(c *Config) { c.Analysis.ForwardHorizonDays = 31 }},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"bad date", func(c *Config) { c.Universe.Start = "01/01/2023" }},
		{"start after end", func(c *Config) { c.Universe.Start, c.Universe.End = "2023-12-31", "2023-01-01" }},
		{"empty symbol", func(c *Config) { c.Universe.Symbols = []string{"A", ""} }},
		{"alpaca without keys", func(c *Config) { c.DataSource.Provider = ProviderAlpaca }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSplitSymbols(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, SplitSymbols("A, B,,C"))
	assert.Empty(t, SplitSymbols(" , "))
}

func TestRedacted(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Telegram.BotToken = "123456:secret"
	red := cfg.Redacted()
	assert.Equal(t, "1234****", red.Telegram.BotToken)
	assert.Equal(t, "123456:secret", cfg.Telegram.BotToken)
}
