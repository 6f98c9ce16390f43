package config_test

import (
	"testing"
	"time"

	"github.com/dvir/roombill-client/internal/config"
	"github.com/dvir/roombill-client/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(testutil.Logger(), "nonexistent-config")

	require.NoError(t, err, "a missing config file falls back to defaults")
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.InactivityTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CacheMaxAge)
	assert.Equal(t, 5*time.Second, cfg.ChatPollInterval)
	assert.Equal(t, 24*time.Hour, cfg.ChatRetention)
	assert.Equal(t, 30*time.Second, cfg.ReadTrackInterval)
	assert.Equal(t, 100_000, cfg.AvatarByteLimit)
	assert.Equal(t, 5, cfg.RecentAccountsMax)
	assert.Equal(t, 9, cfg.ReminderHour)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ROOMBILL_API_BASEURL", "https://api.example.com")
	t.Setenv("ROOMBILL_SESSION_INACTIVITYTIMEOUT", "10m")

	cfg, err := config.Load(testutil.Logger(), "nonexistent-config")

	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Minute, cfg.InactivityTimeout)
}

func TestDefault_MatchesLoad(t *testing.T) {
	cfg := config.Default()

	loaded, err := config.Load(testutil.Logger(), "nonexistent-config")
	require.NoError(t, err)
	assert.Equal(t, loaded.InactivityTimeout, cfg.InactivityTimeout)
	assert.Equal(t, loaded.CacheMaxAge, cfg.CacheMaxAge)
	assert.Equal(t, loaded.ChatPollInterval, cfg.ChatPollInterval)
}
