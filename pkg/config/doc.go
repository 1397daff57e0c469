// Package config provides application configuration management from
// environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables
// with sensible defaults for all settings. A .env file is honored when
// present (loaded by the binaries via godotenv before calling Load).
//
// # Configuration Structure
//
// Server settings:
//
//	KELVIN_HOST="0.0.0.0"
//	KELVIN_PORT="8080"
//	KELVIN_HEALTH_PORT="9090"
//	KELVIN_READ_TIMEOUT="15s"
//	KELVIN_WRITE_TIMEOUT="15s"
//
// User store settings:
//
//	KELVIN_DB_DRIVER="sqlite3"  # sqlite3, postgres, memory
//	KELVIN_DB_DSN="kelvin.db"
//	KELVIN_DEMO_USERNAME="user"
//	KELVIN_DEMO_PASSWORD="pass"
//
// Session settings:
//
//	KELVIN_COOKIE_SECRET="..."   # required outside demo mode
//	KELVIN_COOKIE_SECURE="false"
//	KELVIN_SESSION_MAX_AGE="336h"
//
// Billing settings:
//
//	KELVIN_BILLING_URL="http://localhost:8081"
//	KELVIN_BILLING_API_KEY=""
//	KELVIN_BILLING_PERMISSIVE="false"  # skip entitlement denials (demo)
//	KELVIN_CATALOG_TTL="5m"
//	KELVIN_CATALOG_REFRESH="@every 5m"
//
// Payment settings:
//
//	KELVIN_STRIPE_SECRET_KEY="sk_test_..."
//	KELVIN_STRIPE_PUBLISHABLE_KEY="pk_test_..."
//	KELVIN_STRIPE_URL=""  # override for local stubs
//
// Cache settings:
//
//	KELVIN_REDIS_URL=""  # empty disables the shared catalog cache tier
//
// Observability settings:
//
//	KELVIN_LOG_LEVEL="info"  # debug, info, warn, error
//	KELVIN_METRICS_ENABLED="true"
//	KELVIN_OTEL_ENABLED="false"
//	KELVIN_OTEL_ENDPOINT="localhost:4317"
package config
