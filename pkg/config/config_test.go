package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelvinhq/kelvin/pkg/observability"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "sqlite3", cfg.Users.Driver)
	assert.Equal(t, "user", cfg.Users.DemoUsername)
	assert.Equal(t, "pass", cfg.Users.DemoPassword)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "http://localhost:8081", cfg.Billing.URL)
	assert.False(t, cfg.Billing.Permissive)
	assert.Equal(t, 5*time.Minute, cfg.Billing.CatalogTTL)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KELVIN_PORT", "3000")
	t.Setenv("KELVIN_DB_DRIVER", "postgres")
	t.Setenv("KELVIN_DB_DSN", "postgres://localhost/kelvin")
	t.Setenv("KELVIN_BILLING_PERMISSIVE", "true")
	t.Setenv("KELVIN_CATALOG_TTL", "30s")
	t.Setenv("KELVIN_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Users.Driver)
	assert.True(t, cfg.Billing.Permissive)
	assert.Equal(t, 30*time.Second, cfg.Billing.CatalogTTL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "same ports",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "must be different",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Users.Driver = "oracle" },
			wantErr: "invalid db driver",
		},
		{
			name: "postgres without DSN",
			mutate: func(c *Config) {
				c.Users.Driver = "postgres"
				c.Users.DSN = ""
			},
			wantErr: "DSN is required",
		},
		{
			name:    "missing cookie secret",
			mutate:  func(c *Config) { c.Session.CookieSecret = "" },
			wantErr: "cookie secret",
		},
		{
			name:    "missing billing URL",
			mutate:  func(c *Config) { c.Billing.URL = "" },
			wantErr: "billing backend URL",
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("KELVIN_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}
