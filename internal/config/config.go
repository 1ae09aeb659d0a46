// Package config loads the client configuration from defaults, an optional
// YAML file, SPENDSENSE_* environment variables and a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SPENDSENSE_API_URL.
const EnvPrefix = "SPENDSENSE"

// Config holds all application configuration.
type Config struct {
	// Backend
	APIURL      string
	HTTPTimeout time.Duration

	// Resilience. MaxRetries applies to idempotent reads only.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Session store
	SessionDriver string // sqlite | memory
	SessionPath   string

	// Budget evaluation
	Location  *time.Location
	WeekStart time.Weekday

	// Observability
	LogLevel     string
	OTLPEndpoint string

	// Alerts
	AlertsAMQPURL    string
	AlertsExchange   string
	AlertsRoutingKey string

	// Assistant
	AssistantHistory int

	// Local API
	ServePort int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://127.0.0.1:8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout", 10*time.Second)

	v.SetDefault("max_retries", 0)
	v.SetDefault("initial_backoff", 200*time.Millisecond)
	v.SetDefault("max_concurrency", 8)

	v.SetDefault("cache_ttl", 10*time.Minute)

	v.SetDefault("session.driver", "sqlite")
	v.SetDefault("session.path", defaultSessionPath())

	v.SetDefault("timezone", "Local")
	v.SetDefault("week_start", "monday")

	v.SetDefault("otlp_endpoint", "")

	v.SetDefault("alerts.amqp_url", "")
	v.SetDefault("alerts.exchange", "spendsense.alerts")
	v.SetDefault("alerts.routing_key", "budget")

	v.SetDefault("assistant.history", 10)

	v.SetDefault("serve.port", 8080)
}

// Load reads configuration into v and returns the resolved Config.
// cfgFile overrides the search path; a missing default file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "spendsense"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper resolves a Config from an already-populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", v.GetString("timezone"), err)
	}
	weekStart, err := parseWeekday(v.GetString("week_start"))
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(v.GetString("session.driver"))
	if driver != "sqlite" && driver != "memory" {
		return nil, fmt.Errorf("invalid session.driver %q: want sqlite or memory", driver)
	}

	return &Config{
		APIURL:      v.GetString("api_url"),
		HTTPTimeout: v.GetDuration("http_timeout"),

		MaxRetries:     v.GetInt("max_retries"),
		InitialBackoff: v.GetDuration("initial_backoff"),
		MaxConcurrency: v.GetInt("max_concurrency"),

		CacheTTL: v.GetDuration("cache_ttl"),

		SessionDriver: driver,
		SessionPath:   ExpandPath(v.GetString("session.path")),

		Location:  loc,
		WeekStart: weekStart,

		LogLevel:     v.GetString("log_level"),
		OTLPEndpoint: v.GetString("otlp_endpoint"),

		AlertsAMQPURL:    v.GetString("alerts.amqp_url"),
		AlertsExchange:   v.GetString("alerts.exchange"),
		AlertsRoutingKey: v.GetString("alerts.routing_key"),

		AssistantHistory: v.GetInt("assistant.history"),

		ServePort: v.GetInt("serve.port"),
	}, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monday", "mon", "":
		return time.Monday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("invalid week_start %q: want monday, sunday or saturday", s)
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "spendsense-session.db")
	}
	return filepath.Join(home, ".config", "spendsense", "session.db")
}

// ExpandPath expands a leading ~ and $VAR references.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}
