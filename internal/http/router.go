// Package httpapi assembles the HTTP surface: storefront, lookup and shop
// manager endpoints behind the shared middleware chain.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "euvat/internal/admin"
	checkouthandler "euvat/internal/checkout/handler"
	currencyhandler "euvat/internal/currency/handler"
	vieshandler "euvat/internal/evidence/vies/handler"
	ordervathandler "euvat/internal/ordervat/handler"
	"euvat/internal/platform/metrics"
	platformmw "euvat/internal/platform/middleware"
	ratelimitmw "euvat/internal/ratelimit/middleware"
	rateshandler "euvat/internal/vatrates/handler"
	"euvat/pkg/platform/httputil"
	"euvat/pkg/platform/middleware/admin"
	"euvat/pkg/platform/middleware/metadata"
	"euvat/pkg/platform/middleware/requesttime"
)

// Handlers groups the endpoint handlers. A nil handler leaves its routes
// unmounted.
type Handlers struct {
	Checkout *checkouthandler.Handler
	Validate *vieshandler.Handler
	OrderVAT *ordervathandler.Handler
	Currency *currencyhandler.Handler
	Rates    *rateshandler.Handler
	Audit    *adminhandler.Handler
}

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries the cross-cutting pieces of the router.
type Config struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	RateLimit       *ratelimitmw.Middleware
	AdminSigningKey []byte
	HealthChecks    map[string]HealthCheck
	TrustedProxies  []netip.Prefix
}

// NewRouter wires all public endpoints.
func NewRouter(h Handlers, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata(cfg.TrustedProxies))
	r.Use(platformmw.Recover(cfg.Logger, cfg.Metrics))
	r.Use(platformmw.AccessLog(cfg.Logger, cfg.Metrics))

	r.Get("/healthz", healthz(cfg.HealthChecks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if h.Checkout != nil {
		h.Checkout.Register(r)
	}
	if h.Validate != nil {
		r.Group(func(r chi.Router) {
			if cfg.RateLimit != nil {
				r.Use(cfg.RateLimit.RateLimit)
			}
			h.Validate.Register(r)
		})
	}
	if h.Currency != nil {
		h.Currency.Register(r)
	}
	if h.Rates != nil {
		h.Rates.Register(r)
	}
	if h.OrderVAT != nil {
		h.OrderVAT.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(cfg.AdminSigningKey, cfg.Logger))
		if h.OrderVAT != nil {
			h.OrderVAT.RegisterAdmin(r)
		}
		if h.Audit != nil {
			h.Audit.RegisterAdmin(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
