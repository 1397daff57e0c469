// Package observability bundles the service's ambient concerns: structured
// JSON logging, Prometheus metrics, health probes, OpenTelemetry setup, and
// graceful shutdown. Handlers and clients depend on these types rather than
// on globals so tests can inject quiet substitutes.
package observability
