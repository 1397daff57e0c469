package httputil

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kelvinhq/kelvin/pkg/observability"
)

// RequestIDHeader is echoed on every response so clients can correlate logs.
const RequestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestIDMiddleware assigns each request an ID, honoring one supplied by
// the client, and stores it in the request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	})
}

// LoggingMiddleware emits one structured log line per request and records
// request metrics. Metrics may be nil in tests.
func LoggingMiddleware(logger *observability.Logger, metrics *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			reqLogger := logger.WithFields(map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"request_id": observability.GetRequestID(r.Context()),
			})
			ctx := observability.WithLogger(r.Context(), reqLogger)
			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			if metrics != nil {
				route := r.URL.Path
				if cur := mux.CurrentRoute(r); cur != nil {
					if tmpl, err := cur.GetPathTemplate(); err == nil {
						route = tmpl
					}
				}
				metrics.ObserveHTTPRequest(r.Method, route, rec.status, duration)
			}
			reqLogger.WithFields(map[string]interface{}{
				"status":      rec.status,
				"duration_ms": duration.Milliseconds(),
			}).Info("request completed")
		})
	}
}

// RecoveryMiddleware converts handler panics into 500 responses.
func RecoveryMiddleware(logger *observability.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithFields(map[string]interface{}{
						"panic":      rec,
						"path":       r.URL.Path,
						"request_id": observability.GetRequestID(r.Context()),
						"stack":      string(debug.Stack()),
					}).Error("handler panicked")
					WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
