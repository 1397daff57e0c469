package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kelvinhq/kelvin/pkg/observability"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates ID", func(t *testing.T) {
		var seen string
		h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = observability.GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("honors client ID", func(t *testing.T) {
		var seen string
		h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = observability.GetRequestID(r.Context())
		}))

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "client-supplied")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "client-supplied", seen)
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	h := LoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/brew", nil))

	out := buf.String()
	assert.Contains(t, out, "request completed")
	assert.Contains(t, out, "/brew")
	assert.Contains(t, out, "418")
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, 500, rec.Code)
	assert.Contains(t, buf.String(), "handler panicked")
}
