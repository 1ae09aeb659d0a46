package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/spendsense-go/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), writeFile(t, "config.yaml", "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", cfg.APIURL)
	assert.Equal(t, 0, cfg.MaxRetries, "retries are opt-in")
	assert.Equal(t, time.Monday, cfg.WeekStart)
	assert.Equal(t, "sqlite", cfg.SessionDriver)
	assert.Equal(t, 10, cfg.AssistantHistory)
	assert.Equal(t, "budget", cfg.AlertsRoutingKey)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api_url: http://backend:9000
timezone: America/New_York
session:
  driver: memory
alerts:
  exchange: custom
`)
	t.Setenv("SPENDSENSE_MAX_RETRIES", "2")
	t.Setenv("SPENDSENSE_ALERTS_EXCHANGE", "from-env")

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.APIURL)
	assert.Equal(t, "America/New_York", cfg.Location.String())
	assert.Equal(t, "memory", cfg.SessionDriver)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, "from-env", cfg.AlertsExchange, "env overrides file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"timezone":   "timezone: Mars/Olympus\n",
		"week start": "week_start: thursday\n",
		"driver":     "session:\n  driver: postgres\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(viper.New(), writeFile(t, "config.yaml", body))
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := writeFile(t, ".env", "SPENDSENSE_TEST_A=from-file\nSPENDSENSE_TEST_B=from-file\n")
	t.Setenv("SPENDSENSE_TEST_A", "from-env")
	t.Setenv("SPENDSENSE_TEST_B", "")
	require.NoError(t, os.Unsetenv("SPENDSENSE_TEST_B"))

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("SPENDSENSE_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("SPENDSENSE_TEST_B"))
	require.NoError(t, os.Unsetenv("SPENDSENSE_TEST_B"))
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "s.db"), config.ExpandPath("~/x/s.db"))

	t.Setenv("SPENDSENSE_DIR", "/tmp/ss")
	assert.Equal(t, "/tmp/ss/s.db", config.ExpandPath("$SPENDSENSE_DIR/s.db"))
}
