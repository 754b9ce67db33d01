package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SwingScout/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SQLITE_PATH", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"DATA_SOURCE_BASE_URL", "DATA_SOURCE_API_KEY", "UPDATE_FREQUENCY_MINUTES", "LOG_LEVEL", "CONFIG_PATH", "TIMEZONE"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data/swingscout.db", cfg.Database.SQLitePath)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 30, cfg.Schedule.UpdateFrequencyMinutes)
	assert.Equal(t, 10, cfg.Scanner.TopN)
	assert.Equal(t, 20*time.Second, cfg.Scanner.SymbolTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
database:
  sqlite_path: /tmp/from-file.db
data_source:
  provider: rest
  base_url: http://localhost:9000
  timeout: 5s
scanner:
  seed: 42
markets:
  indian:
    - symbol: RELIANCE
      sector: Energy
  us:
    - symbol: AAPL
      sector: Technology
    - symbol: MSFT
      sector: Technology
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("SQLITE_PATH", "/tmp/from-env.db")
	t.Setenv("UPDATE_FREQUENCY_MINUTES", "15")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-env.db", cfg.Database.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, uint64(42), cfg.Scanner.Seed)
	assert.Equal(t, 15, cfg.Schedule.UpdateFrequencyMinutes)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
	assert.Len(t, cfg.Universe(model.MarketUS), 2)
	assert.Equal(t, "Energy", cfg.Universe(model.MarketIndian)[0].Sector)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cfg.DataSource.Provider = "rest"
	assert.Error(t, cfg.Validate(), "rest without base_url")

	cfg.DataSource.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg.DataSource.Provider = "mock"
	cfg.Telegram.Enabled = true
	assert.Error(t, cfg.Validate(), "telegram enabled without token")
}

func TestResolvePath(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, "x.yaml", ResolvePath("x.yaml"))
	t.Setenv("CONFIG_PATH", "env.yaml")
	assert.Equal(t, "env.yaml", ResolvePath(""))
}

func TestTimezone(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Local", cfg.Timezone)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	t.Setenv("TIMEZONE", "Asia/Kolkata")
	cfg, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
