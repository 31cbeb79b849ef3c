package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"euvat/internal/ratelimit/metrics"
	"euvat/internal/ratelimit/models"
	"euvat/internal/ratelimit/store/bucket"
	"euvat/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("store down")
}

func request(ip string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/vat/validate", nil)
	return r.WithContext(requestcontext.WithClientMetadata(r.Context(), ip, "test"))
}

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("refuses after the limit per IP", func(t *testing.T) {
		m := metrics.New(prometheus.NewRegistry())
		h := New(bucket.NewInMemoryBucketStore(), 2, time.Minute, logger, WithMetrics(m)).RateLimit(ok)

		for range 2 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, request("203.0.113.1"))
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Refusals))

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, request("203.0.113.2"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("store failure lets the request through", func(t *testing.T) {
		h := New(failingStore{}, 1, time.Minute, logger).RateLimit(ok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("203.0.113.3"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		h := New(failingStore{}, 0, time.Minute, logger).RateLimit(ok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("203.0.113.4"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
