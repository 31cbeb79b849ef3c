package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "euvat/internal/http"
	"euvat/internal/platform/config"
	"euvat/internal/platform/httpserver"
	"euvat/internal/platform/logger"
	"euvat/internal/platform/metrics"
)

// main loads configuration, wires the services and keeps the server
// lifecycle small. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	app, err := buildApp(ctx, cfg, log, reg, infra)
	if err != nil {
		return err
	}
	defer app.Close()

	router := httpapi.NewRouter(app.handlers, httpapi.Config{
		Logger:          log,
		Metrics:         metrics.New(reg),
		Gatherer:        reg,
		RateLimit:       app.rateLimit,
		AdminSigningKey: []byte(cfg.Server.AdminSigningKey),
		HealthChecks:    infra.HealthChecks(),
		TrustedProxies:  cfg.Server.TrustedProxies,
	})

	srv := httpserver.New(cfg.Server, router, log)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting euvat", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
