package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"euvat/internal/platform/metrics"
)

func TestAccessLogAndRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(AccessLog(logger, m), Recover(logger, m))
	r.Get("/orders/{orderID}/vat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("exempt without valid number")
	})

	t.Run("records route pattern", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/42/vat", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/orders/{orderID}/vat", "GET", "204")))
	})

	t.Run("panic becomes 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Panics))
		assert.Contains(t, buf.String(), "handler panic")
	})
}
