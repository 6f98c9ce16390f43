package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Backend
	APIBaseURL  string
	Environment string

	// Device storage
	DatabaseURL           string // optional gorm-backed blob store
	SecureStorePath       string
	SecureStorePassphrase string

	// Session
	InactivityTimeout time.Duration
	AvatarByteLimit   int
	RecentAccountsMax int
	ReminderHour      int
	ReminderMinute    int

	// Screen cache
	CacheMaxAge time.Duration

	// Chat
	ChatPollInterval  time.Duration
	ChatRetention     time.Duration
	ReadTrackInterval time.Duration
}

// Load reads configuration from an optional yaml file and environment
// variables, with sane defaults for everything but the backend URL.
func Load(logger *slog.Logger, fileName string) (*Config, error) {
	v := viper.New()

	v.SetDefault("api.baseURL", "http://localhost:8080")
	v.SetDefault("environment", "development")
	v.SetDefault("storage.databaseURL", "")
	v.SetDefault("storage.securePath", "roombill-secure.box")
	v.SetDefault("storage.securePassphrase", "dev-only-passphrase")
	v.SetDefault("session.inactivityTimeout", "5m")
	v.SetDefault("session.avatarByteLimit", 100_000)
	v.SetDefault("session.recentAccountsMax", 5)
	v.SetDefault("session.reminderHour", 9)
	v.SetDefault("session.reminderMinute", 0)
	v.SetDefault("cache.maxAge", "10m")
	v.SetDefault("chat.pollInterval", "5s")
	v.SetDefault("chat.retention", "24h")
	v.SetDefault("chat.readTrackInterval", "30s")

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ROOMBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		logger.Warn("config file not found, relying on defaults and env vars")
	}

	cfg := &Config{
		APIBaseURL:            v.GetString("api.baseURL"),
		Environment:           v.GetString("environment"),
		DatabaseURL:           v.GetString("storage.databaseURL"),
		SecureStorePath:       v.GetString("storage.securePath"),
		SecureStorePassphrase: v.GetString("storage.securePassphrase"),
		InactivityTimeout:     v.GetDuration("session.inactivityTimeout"),
		AvatarByteLimit:       v.GetInt("session.avatarByteLimit"),
		RecentAccountsMax:     v.GetInt("session.recentAccountsMax"),
		ReminderHour:          v.GetInt("session.reminderHour"),
		ReminderMinute:        v.GetInt("session.reminderMinute"),
		CacheMaxAge:           v.GetDuration("cache.maxAge"),
		ChatPollInterval:      v.GetDuration("chat.pollInterval"),
		ChatRetention:         v.GetDuration("chat.retention"),
		ReadTrackInterval:     v.GetDuration("chat.readTrackInterval"),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("api.baseURL is required")
	}
	if cfg.InactivityTimeout <= 0 {
		return nil, fmt.Errorf("session.inactivityTimeout must be positive")
	}

	return cfg, nil
}

// Default returns the configuration used when no file or env overrides exist,
// mostly for tests and the demo client.
func Default() *Config {
	return &Config{
		APIBaseURL:            "http://localhost:8080",
		Environment:           "development",
		SecureStorePath:       "roombill-secure.box",
		SecureStorePassphrase: "dev-only-passphrase",
		InactivityTimeout:     5 * time.Minute,
		AvatarByteLimit:       100_000,
		RecentAccountsMax:     5,
		ReminderHour:          9,
		ReminderMinute:        0,
		CacheMaxAge:           10 * time.Minute,
		ChatPollInterval:      5 * time.Second,
		ChatRetention:         24 * time.Hour,
		ReadTrackInterval:     30 * time.Second,
	}
}
