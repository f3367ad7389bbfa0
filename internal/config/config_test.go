package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyrelim/pland/internal/config"
)

func TestLoadConfig_DefaultHostIsLocalhost(t *testing.T) {
	_ = os.Unsetenv("PLAND_HOST")
	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host,
		"Default host must be 127.0.0.1 for security")
}

func TestLoadConfig_CanOverrideHost(t *testing.T) {
	t.Setenv("PLAND_HOST", "0.0.0.0")
	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Engine)
	assert.Equal(t, "gemini", cfg.Oracle.Provider)
	assert.Equal(t, 8*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 21, cfg.Briefing.Hour)
	assert.Equal(t, "Asia/Singapore", cfg.Briefing.Timezone)
	assert.Equal(t, 4096, cfg.Memory.MaxRooms)
}

func TestLoadConfig_OracleTimeoutOverride(t *testing.T) {
	t.Setenv("PLAND_ORACLE_TIMEOUT", "3s")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Oracle.Timeout)
}

func TestLoadConfig_BadDurationFallsBack(t *testing.T) {
	t.Setenv("PLAND_ORACLE_TIMEOUT", "not-a-duration")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8*time.Second, cfg.Oracle.Timeout)
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("PLAND_TELEGRAM_BOT_TOKEN", "123:abc")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestValidate_RequiresBotToken(t *testing.T) {
	_ = os.Unsetenv("PLAND_TELEGRAM_BOT_TOKEN")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Engine = "postgres"
	cfg.Storage.PostgresDSN = ""
	assert.Error(t, cfg.Validate())

	cfg.Storage.PostgresDSN = "postgres://localhost/pland?sslmode=disable"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownEngine(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Engine = "mongo"
	assert.Error(t, cfg.Validate())
}

func TestValidate_BriefingHourRange(t *testing.T) {
	cfg := validConfig(t)
	cfg.Briefing.Hour = 24
	assert.Error(t, cfg.Validate())

	cfg.Briefing.Hour = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadTimezone(t *testing.T) {
	cfg := validConfig(t)
	cfg.Briefing.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, cfg.Validate())
}

func TestLocation_LoadsConfiguredZone(t *testing.T) {
	cfg := validConfig(t)
	loc := cfg.Location()
	require.NotNil(t, loc)
	assert.Equal(t, "Asia/Singapore", loc.String())
}
