package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"

	"github.com/bodhi-gateway/core/internal/access"
	"github.com/bodhi-gateway/core/internal/accessrequest"
	"github.com/bodhi-gateway/core/internal/apimodelcache"
	"github.com/bodhi-gateway/core/internal/auth"
	"github.com/bodhi-gateway/core/internal/config"
	"github.com/bodhi-gateway/core/internal/inference"
	"github.com/bodhi-gateway/core/internal/modelcache"
	"github.com/bodhi-gateway/core/internal/modelrouter"
	"github.com/bodhi-gateway/core/internal/remoteforward"
	"github.com/bodhi-gateway/core/internal/server"
	"github.com/bodhi-gateway/core/internal/storage"
	"github.com/bodhi-gateway/core/internal/storage/pg"
	"github.com/bodhi-gateway/core/internal/storage/sqlite"
	"github.com/bodhi-gateway/core/internal/telemetry"
	"github.com/bodhi-gateway/core/internal/worker"
	"go.opentelemetry.io/otel/trace"
)

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting bodhi-gateway", "version", version, "addr", cfg.Server.Addr)

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()
	slog.Info("database opened", "dialect", cfg.Database.Dialect)

	if cfg.Inference.HFHome != "" {
		entries, err := modelcache.Scan(cfg.Inference.HFHome)
		if err != nil {
			slog.Warn("model cache scan failed", "error", err)
		} else {
			for _, a := range modelcache.ToAliases(entries) {
				if existing, _ := store.GetAlias(ctx, a.Name); existing == nil {
					if err := store.CreateAlias(ctx, a); err != nil {
						slog.Warn("model cache alias seed failed", "name", a.Name, "error", err)
						continue
					}
				}
			}
			slog.Info("model cache scanned", "home", cfg.Inference.HFHome, "found", len(entries))
		}
	}

	if err := config.Bootstrap(ctx, cfg, store); err != nil {
		return err
	}

	// Shared DNS cache for the remote forwarder's HTTP client.
	dnsResolver := &dnscache.Resolver{}
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for range t.C {
			dnsResolver.Refresh(true)
		}
	}()

	// Auth Context Resolver + Token Exchange. An authorization-server issuer
	// is mandatory: the resolver's bearer-token path always has an
	// Exchanger behind it, so every deployment needs one configured.
	if cfg.Auth.Issuer == "" {
		return errors.New("auth.issuer must be configured")
	}
	exchangeClient, err := auth.NewExchangeClientFromIssuer(ctx, cfg.Auth.Issuer, cfg.Auth.ClientID, cfg.Auth.ClientSecret)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	exchanger := auth.NewExchanger(exchangeClient)
	authenticator := auth.NewResolver(store, exchanger, cfg.Auth.ClientID)
	consentClient := &auth.ConsentRegistrationClient{ConsentURL: cfg.Auth.Issuer + "/realms/" + cfg.Auth.Realm + "/bodhi/consent"}
	slog.Info("auth context resolver configured", "issuer", cfg.Auth.Issuer)

	// Model Router.
	router := modelrouter.New(store, store)

	// Shared Inference Context + Local Forwarder.
	launcher := inference.Launcher{
		ExecPath:  filepath.Join(cfg.Inference.ExecLookupPath, cfg.Inference.ExecVariant, "llama-server"),
		ExtraArgs: cfg.Inference.ExtraArgs,
	}
	sharedCtx := inference.New(launcher)
	localForwarder := &inference.Forwarder{Ctx: sharedCtx}

	// Remote Forwarder + API-Model Cache.
	remote := remoteforward.New(dnsResolver, cfg.Auth.EncryptionSecret)
	apiModelCache := apimodelcache.New(remote)

	// Access Request lifecycle.
	accessRequests := accessrequest.New(store, consentClient)

	// Background workers: idle-unload (optional) and session purge.
	workers := []worker.Worker{worker.NewSessionPurgeWorker(store)}
	if cfg.Inference.KeepAliveSecs > 0 {
		keepAlive := time.Duration(cfg.Inference.KeepAliveSecs) * time.Second
		workers = append(workers, worker.NewIdleUnloadWorker(sharedCtx, keepAlive))
		slog.Info("idle-unload worker enabled", "keep_alive", keepAlive)
	}
	runner := worker.NewRunner(workers...)

	// Prometheus metrics.
	var metrics *telemetry.Metrics
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		promRegistry := prometheus.NewRegistry()
		promRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		promRegistry.MustRegister(collectors.NewGoCollector())
		metrics = telemetry.NewMetrics(promRegistry)
		metricsHandler = promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})
		slog.Info("prometheus metrics enabled")
	}

	// OpenTelemetry tracing.
	var tracer trace.Tracer
	var tracingShutdown func(context.Context) error
	if cfg.Telemetry.Tracing.Enabled {
		endpoint := cfg.Telemetry.Tracing.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		sampleRate := cfg.Telemetry.Tracing.SampleRate
		if sampleRate == 0 {
			sampleRate = 0.1
		}
		shutdown, err := telemetry.SetupTracing(ctx, endpoint, sampleRate)
		if err != nil {
			slog.Warn("tracing setup failed, continuing without tracing", "error", err)
		} else {
			tracingShutdown = shutdown
			tracer = telemetry.Tracer("bodhi-gateway/server")
			slog.Info("opentelemetry tracing enabled", "endpoint", endpoint, "sample_rate", sampleRate)
		}
	}

	toolService := access.NewToolRegistry(cfg.Tools)

	handler := server.New(server.Deps{
		Auth:             authenticator,
		Router:           router,
		Local:            localForwarder,
		Remote:           remote,
		Store:            store,
		AccessRequests:   accessRequests,
		APIModelCache:    apiModelCache,
		ToolService:      toolService,
		Metrics:          metrics,
		MetricsHandler:   metricsHandler,
		Tracer:           tracer,
		ReadyCheck:       func(ctx context.Context) error { return nil },
		EncryptionSecret: cfg.Auth.EncryptionSecret,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- runner.Run(workerCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("api enabled",
		"endpoints", []string{
			"POST /v1/chat/completions",
			"POST /v1/embeddings",
			"GET  /v1/models",
		},
	)
	slog.Info("bodhi-gateway ready", "addr", cfg.Server.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		workerCancel()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		workerCancel()
		return err
	}

	workerCancel()
	if err := <-workerDone; err != nil {
		slog.Error("worker shutdown error", "error", err)
	}

	if err := sharedCtx.Stop(); err != nil {
		slog.Error("shared inference context shutdown error", "error", err)
	}

	if tracingShutdown != nil {
		if err := tracingShutdown(shutdownCtx); err != nil {
			slog.Error("tracing shutdown error", "error", err)
		}
	}

	slog.Info("bodhi-gateway stopped")
	return nil
}

// openStore opens the configured storage dialect and returns a close func.
func openStore(ctx context.Context, dbCfg config.DatabaseConfig) (storage.Store, func(), error) {
	switch dbCfg.Dialect {
	case "", "sqlite":
		s, err := sqlite.New(dbCfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "pg":
		s, err := pg.New(ctx, dbCfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database dialect %q", dbCfg.Dialect)
	}
}
