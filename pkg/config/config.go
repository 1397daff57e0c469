package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelvinhq/kelvin/pkg/observability"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Users         UsersConfig
	Session       SessionConfig
	Billing       BillingConfig
	Payment       PaymentConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// UsersConfig holds user store and demo credential configuration.
type UsersConfig struct {
	Driver string // sqlite3, postgres, memory
	DSN    string

	DemoUsername string
	DemoPassword string
}

// SessionConfig holds identity cookie configuration.
type SessionConfig struct {
	CookieSecret string
	CookieSecure bool
	MaxAge       time.Duration
}

// BillingConfig holds billing backend configuration.
type BillingConfig struct {
	URL        string
	APIKey     string
	Permissive bool

	CatalogTTL     time.Duration
	CatalogRefresh string // cron spec
}

// PaymentConfig holds payment processor configuration.
type PaymentConfig struct {
	SecretKey      string
	PublishableKey string
	BaseURL        string // empty uses the processor default
}

// CacheConfig holds the shared cache tier configuration.
type CacheConfig struct {
	RedisURL string // empty disables the Redis tier
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("KELVIN_HOST", "0.0.0.0"),
			Port:            getEnv("KELVIN_PORT", "8080"),
			ReadTimeout:     getEnvDuration("KELVIN_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("KELVIN_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("KELVIN_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("KELVIN_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("KELVIN_HEALTH_PORT", "9090"),
		},
		Users: UsersConfig{
			Driver:       getEnv("KELVIN_DB_DRIVER", "sqlite3"),
			DSN:          getEnv("KELVIN_DB_DSN", "kelvin.db"),
			DemoUsername: getEnv("KELVIN_DEMO_USERNAME", "user"),
			DemoPassword: getEnv("KELVIN_DEMO_PASSWORD", "pass"),
		},
		Session: SessionConfig{
			CookieSecret: getEnv("KELVIN_COOKIE_SECRET", "kelvin-demo-secret"),
			CookieSecure: getEnvBool("KELVIN_COOKIE_SECURE", false),
			MaxAge:       getEnvDuration("KELVIN_SESSION_MAX_AGE", 14*24*time.Hour),
		},
		Billing: BillingConfig{
			URL:            getEnv("KELVIN_BILLING_URL", "http://localhost:8081"),
			APIKey:         getEnv("KELVIN_BILLING_API_KEY", ""),
			Permissive:     getEnvBool("KELVIN_BILLING_PERMISSIVE", false),
			CatalogTTL:     getEnvDuration("KELVIN_CATALOG_TTL", 5*time.Minute),
			CatalogRefresh: getEnv("KELVIN_CATALOG_REFRESH", "@every 5m"),
		},
		Payment: PaymentConfig{
			SecretKey:      getEnv("KELVIN_STRIPE_SECRET_KEY", ""),
			PublishableKey: getEnv("KELVIN_STRIPE_PUBLISHABLE_KEY", ""),
			BaseURL:        getEnv("KELVIN_STRIPE_URL", ""),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("KELVIN_REDIS_URL", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("KELVIN_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("KELVIN_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("KELVIN_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("KELVIN_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("KELVIN_OTEL_SERVICE_NAME", "kelvin"),
			OTelServiceVersion: getEnv("KELVIN_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("KELVIN_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Users.Driver {
	case "sqlite3", "postgres":
		if c.Users.DSN == "" {
			return fmt.Errorf("database DSN is required for driver %s", c.Users.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("invalid db driver: %s (must be sqlite3, postgres, or memory)", c.Users.Driver)
	}

	if c.Session.CookieSecret == "" {
		return fmt.Errorf("cookie secret is required")
	}

	if c.Billing.URL == "" {
		return fmt.Errorf("billing backend URL is required")
	}
	if c.Billing.CatalogRefresh == "" {
		return fmt.Errorf("catalog refresh schedule is required")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
