package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger is any dependency that can report reachability. The billing
// backend client satisfies this.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker probes the service's dependencies for readiness reporting.
// Any of the dependencies may be nil and is then skipped.
type HealthChecker struct {
	db      *sql.DB
	redis   *redis.Client
	billing Pinger
}

// NewHealthChecker creates a health checker over the given dependencies.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, billing Pinger) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient, billing: billing}
}

// HealthStatus is the overall readiness report.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the health of one dependency.
type DependencyStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms"`
}

// Liveness always reports healthy while the process is serving.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness probes all dependencies. A database failure is unhealthy (503);
// billing or redis failures degrade but keep serving (200), since cached
// data and the health-distinct 503 path in handlers cover those outages.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

// Check probes each dependency once.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		dep := h.probe(ctx, func(ctx context.Context) error {
			return h.db.PingContext(ctx)
		})
		status.Dependencies["database"] = dep
		if dep.Status != StatusHealthy {
			status.Status = StatusUnhealthy
		}
	}

	if h.redis != nil {
		dep := h.probe(ctx, func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		})
		status.Dependencies["redis"] = dep
		if dep.Status != StatusHealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	if h.billing != nil {
		dep := h.probe(ctx, h.billing.Ping)
		status.Dependencies["billing"] = dep
		if dep.Status != StatusHealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func (h *HealthChecker) probe(ctx context.Context, fn func(context.Context) error) DependencyStatus {
	start := time.Now()
	err := fn(ctx)
	dep := DependencyStatus{
		Status:  StatusHealthy,
		Latency: time.Since(start).Milliseconds(),
	}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}
