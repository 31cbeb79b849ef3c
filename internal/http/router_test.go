package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminhandler "euvat/internal/admin"
	"euvat/internal/evidence/vies"
	vieshandler "euvat/internal/evidence/vies/handler"
	"euvat/internal/ordervat"
	ordervathandler "euvat/internal/ordervat/handler"
	ordervatstore "euvat/internal/ordervat/store"
	"euvat/internal/platform/metrics"
	ratelimitmw "euvat/internal/ratelimit/middleware"
	"euvat/internal/ratelimit/store/bucket"
	"euvat/pkg/platform/audit/publisher"
	auditmemory "euvat/pkg/platform/audit/store/memory"
	"euvat/pkg/platform/middleware/admin"
	"euvat/pkg/platform/middleware/metadata"
	"euvat/pkg/testutil"
)

var signingKey = []byte("router-test-key")

type validValidator struct{}

func (validValidator) Validate(context.Context, string, string) vies.Result {
	return vies.Result{Outcome: vies.OutcomeValid}
}

func newTestRouter(t *testing.T, checks map[string]HealthCheck) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	store := ordervatstore.NewInMemoryStore()
	require.NoError(t, store.SetOrderMeta(context.Background(), "1001", map[string]string{
		ordervat.MetaBillingCountry: "DE",
		ordervat.MetaVATNumber:      "DE123456789",
	}))
	auditor := publisher.NewPublisher(auditmemory.NewInMemoryStore())
	t.Cleanup(auditor.Close)
	recorder, err := ordervat.NewRecorder(store,
		ordervat.WithManualCollection(true),
		ordervat.WithLogger(logger),
		ordervat.WithAuditor(auditor),
	)
	require.NoError(t, err)

	return NewRouter(Handlers{
		Validate: vieshandler.New(validValidator{}, logger),
		OrderVAT: ordervathandler.New(recorder, logger),
		Audit:    adminhandler.New(auditor, logger),
	}, Config{
		Logger:          logger,
		Metrics:         metrics.New(reg),
		Gatherer:        reg,
		RateLimit:       ratelimitmw.New(bucket.NewInMemoryBucketStore(), 1, time.Minute, logger),
		AdminSigningKey: signingKey,
		HealthChecks:    checks,
	})
}

func TestRouter_Healthz(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		rr := testutil.DoRequest(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get(metadata.HeaderRequestID))
	})

	t.Run("degraded backend", func(t *testing.T) {
		checks := map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		}
		rr := testutil.DoRequest(newTestRouter(t, checks), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "connection refused")
	})
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, nil)
	testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/healthz")
}

func TestRouter_ValidateIsRateLimited(t *testing.T) {
	router := newTestRouter(t, nil)
	path := "/vat/validate?country=DE&vat_number=123456789"

	rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Other endpoints share no budget with the lookup.
	rr = testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodPost, "/admin/orders/1001/vat/collect", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := admin.IssueToken(signingKey, "manager@shop", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/1001/vat/collect", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	info := testutil.UnmarshalResponse[ordervat.OrderVAT](t, rr)
	assert.Equal(t, "DE123456789", info.VATNumber)

	// The storefront read stays public.
	rr = testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/orders/1001/vat", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/admin/audit/1001", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/audit/1001", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	trail := testutil.UnmarshalResponse[adminhandler.AuditTrailResponse](t, rr)
	assert.NotZero(t, trail.Total)
}
