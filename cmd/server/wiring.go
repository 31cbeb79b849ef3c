package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	adminhandler "euvat/internal/admin"
	"euvat/internal/checkout"
	checkouthandler "euvat/internal/checkout/handler"
	checkoutmetrics "euvat/internal/checkout/metrics"
	"euvat/internal/currency"
	currencyhandler "euvat/internal/currency/handler"
	"euvat/internal/evidence/location"
	"euvat/internal/evidence/vies"
	vieshandler "euvat/internal/evidence/vies/handler"
	viesservice "euvat/internal/evidence/vies/service"
	viesstore "euvat/internal/evidence/vies/store"
	"euvat/internal/exemption"
	httpapi "euvat/internal/http"
	"euvat/internal/ordervat"
	ordervathandler "euvat/internal/ordervat/handler"
	ordervatstore "euvat/internal/ordervat/store"
	"euvat/internal/platform/config"
	"euvat/internal/platform/kafka"
	"euvat/internal/platform/postgres"
	"euvat/internal/platform/redis"
	ratelimitmetrics "euvat/internal/ratelimit/metrics"
	ratelimitmw "euvat/internal/ratelimit/middleware"
	"euvat/internal/ratelimit/store/bucket"
	"euvat/internal/vatrates"
	rateshandler "euvat/internal/vatrates/handler"
	ratesstore "euvat/internal/vatrates/store"
	"euvat/pkg/platform/audit"
	"euvat/pkg/platform/audit/publisher"
	kafkasink "euvat/pkg/platform/audit/sink/kafka"
	auditmemory "euvat/pkg/platform/audit/store/memory"
	auditpostgres "euvat/pkg/platform/audit/store/postgres"
	"euvat/pkg/platform/circuit"
)

// infra holds the optional backing services. Each is nil when unconfigured
// and the in-memory implementation is used instead.
type infra struct {
	redis    *redis.Client
	postgres *postgres.Handles
	kafka    *kgo.Client
	log      *slog.Logger
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{log: log}
	var err error

	if in.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if in.postgres, err = postgres.Open(ctx, cfg.Postgres); err != nil {
		in.Close()
		return nil, err
	}
	if in.kafka, err = kafka.New(ctx, cfg.Kafka); err != nil {
		in.Close()
		return nil, err
	}
	if in.kafka != nil {
		if err := kafka.EnsureTopic(ctx, in.kafka, cfg.Kafka); err != nil {
			log.Warn("audit topic not ensured", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
	}

	log.Info("backing services",
		"redis", in.redis != nil,
		"postgres", in.postgres != nil,
		"kafka", in.kafka != nil,
	)
	return in, nil
}

func (in *infra) HealthChecks() map[string]httpapi.HealthCheck {
	checks := make(map[string]httpapi.HealthCheck)
	if in.redis != nil {
		checks["redis"] = in.redis.Health
	}
	if in.postgres != nil {
		checks["postgres"] = in.postgres.Health
	}
	if in.kafka != nil {
		checks["kafka"] = in.kafka.Ping
	}
	return checks
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.postgres != nil {
		if err := in.postgres.Close(); err != nil {
			in.log.Warn("close postgres", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.log.Warn("close redis", "error", err)
		}
	}
}

type app struct {
	handlers  httpapi.Handlers
	rateLimit *ratelimitmw.Middleware
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer, in *infra) (*app, error) {
	a := &app{}

	auditor, err := buildAuditor(ctx, cfg, log, in)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, auditor.Close)

	// Registry adapter: breaker, session memo and busy override.
	var memo viesservice.MemoStore = viesstore.NewInMemoryMemo(cfg.VIES.MemoTTL)
	if in.redis != nil {
		memo = viesstore.NewRedisMemo(in.redis.Client, cfg.VIES.MemoTTL)
	}
	validator, err := viesservice.New(
		vies.NewClient(cfg.VIES.BaseURL, cfg.VIES.Timeout),
		viesservice.WithMemo(memo),
		viesservice.WithBreaker(circuit.New("vies",
			circuit.WithFailureThreshold(cfg.VIES.BreakerFailureThreshold),
			circuit.WithSuccessThreshold(cfg.VIES.BreakerSuccessThreshold),
		)),
		viesservice.WithAcceptWhenServerBusy(cfg.VAT.AcceptWhenServerBusy),
		viesservice.WithTimeout(cfg.VIES.Timeout),
		viesservice.WithLogger(log),
		viesservice.WithAuditor(auditor),
		viesservice.WithMetrics(viesservice.NewMetrics(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("registry adapter: %w", err)
	}

	engine, err := exemption.New(validator, cfg.VAT,
		exemption.WithStrictInvariants(cfg.StrictInvariants),
		exemption.WithLogger(log),
		exemption.WithAuditor(auditor),
		exemption.WithMetrics(exemption.NewMetrics(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("exemption engine: %w", err)
	}

	collector := location.NewCollector(
		location.WithLogger(log),
		location.WithMetrics(location.NewMetrics(reg)),
	)

	converter := currency.New(cfg.Currency, currency.WithLogger(log), currency.WithDebugMode(cfg.VAT.DebugMode))

	orderStore, err := buildOrderStore(ctx, in)
	if err != nil {
		return nil, err
	}
	recorder, err := ordervat.NewRecorder(orderStore,
		ordervat.WithRateSource(converter),
		ordervat.WithManualCollection(cfg.VAT.CollectVATForManualOrders),
		ordervat.WithLogger(log),
		ordervat.WithAuditor(auditor),
	)
	if err != nil {
		return nil, fmt.Errorf("order VAT recorder: %w", err)
	}

	gatekeeper, err := checkout.New(engine, exemption.NewRequirementPolicy(engine), collector, cfg.VAT,
		checkout.WithCustomerDirectory(recorder),
		checkout.WithRecorder(recorder),
		checkout.WithLogger(log),
		checkout.WithMetrics(checkoutmetrics.New(reg)),
		checkout.WithAuditor(auditor),
	)
	if err != nil {
		return nil, fmt.Errorf("checkout gatekeeper: %w", err)
	}

	resolver, closeResolver, err := buildResolver(cfg.GeoIP, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeResolver)

	var ratesCache vatrates.Cache = ratesstore.NewInMemoryCache()
	if in.redis != nil {
		ratesCache = ratesstore.NewRedisCache(in.redis.Client)
	}
	rates, err := vatrates.New(vatrates.NewClient(cfg.RatesFeed.URL, cfg.RatesFeed.Timeout), ratesCache, cfg.RatesFeed.CacheTTL,
		vatrates.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("VAT rates: %w", err)
	}

	a.rateLimit = ratelimitmw.New(bucket.NewInMemoryBucketStore(), cfg.RateLimit.ValidateLimit, cfg.RateLimit.Window, log,
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithAuditor(auditor),
	)

	a.handlers = httpapi.Handlers{
		Checkout: checkouthandler.New(gatekeeper, resolver, log),
		Validate: vieshandler.New(validator, log),
		OrderVAT: ordervathandler.New(recorder, log),
		Currency: currencyhandler.New(converter, log),
		Rates:    rateshandler.New(rates, log),
		Audit:    adminhandler.New(auditor, log),
	}
	return a, nil
}

func buildAuditor(ctx context.Context, cfg config.Config, log *slog.Logger, in *infra) (*publisher.Publisher, error) {
	var store audit.Store = auditmemory.NewInMemoryStore()
	if in.postgres != nil {
		pg := auditpostgres.New(in.postgres.DB)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate audit store: %w", err)
		}
		store = pg
	}

	opts := []publisher.Option{publisher.WithLogger(log), publisher.WithAsyncBuffer(256)}
	if in.kafka != nil {
		opts = append(opts, publisher.WithSink(kafkasink.New(in.kafka, cfg.Kafka.AuditTopic)))
	}
	return publisher.NewPublisher(store, opts...), nil
}

func buildOrderStore(ctx context.Context, in *infra) (ordervat.Store, error) {
	if in.postgres == nil {
		return ordervatstore.NewInMemoryStore(), nil
	}
	pg := ordervatstore.NewPostgresStore(in.postgres.Pool)
	if err := pg.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate order meta store: %w", err)
	}
	return pg, nil
}

// buildResolver trusts the edge country header first and falls back to the
// MaxMind database when one is configured.
func buildResolver(cfg config.GeoIP, log *slog.Logger) (location.Resolver, func(), error) {
	chain := location.ChainResolver{location.HeaderResolver{Header: cfg.CountryHeader}}
	if cfg.DatabasePath == "" {
		return chain, func() {}, nil
	}
	mm, err := location.OpenMaxMind(cfg.DatabasePath, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := mm.Close(); err != nil {
			log.Warn("close geoip database", "error", err)
		}
	}
	return append(chain, mm), closeFn, nil
}
