package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"LiqSentinel/internal/assets"
	"LiqSentinel/internal/barrier"
	"LiqSentinel/internal/chain"
	"LiqSentinel/internal/config"
	"LiqSentinel/internal/event"
	"LiqSentinel/internal/executor"
	"LiqSentinel/internal/ingestion"
	"LiqSentinel/internal/monitor"
	"LiqSentinel/internal/observability"
	"LiqSentinel/internal/oracle"
	"LiqSentinel/internal/persistence"
	"LiqSentinel/internal/state"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := observability.NewLogger("main")
	log.Info().Msg("LiqSentinel starting")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// --- Context with graceful shutdown ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Registries ---
	assetConfigs := make([]assets.Config, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		assetConfigs = append(assetConfigs, assets.Config{
			Name:     a.Name,
			Ticker:   a.Ticker,
			Decimals: a.Decimals,
			Address:  event.NormalizeAddress(a.Address),
		})
	}
	registry, err := assets.NewRegistry(assetConfigs)
	if err != nil {
		log.Fatal().Err(err).Msg("build asset registry")
	}

	poolConfigs := make([]assets.PoolConfig, 0, len(cfg.Pools))
	for _, p := range cfg.Pools {
		poolConfigs = append(poolConfigs, assets.PoolConfig{
			Name:    p.Name,
			Address: event.NormalizeAddress(p.Address),
		})
	}
	pools, err := assets.NewPoolRegistry(poolConfigs)
	if err != nil {
		log.Fatal().Err(err).Msg("build pool registry")
	}
	log.Info().
		Int("assets", registry.Len()).
		Int("pools", len(pools.All())).
		Msg("registries loaded")

	// --- Chain transport ---
	rpc, err := chain.NewClient(cfg.RPCEndpoints, cfg.RPCTimeout, observability.NewLogger("chain"), metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("build rpc client")
	}

	// --- Position store ---
	pairConfig := chain.NewPairConfigClient(rpc)
	store := state.NewStore(registry, pools, pairConfig, observability.NewLogger("store"), metrics)

	// --- Price cache + refresher ---
	priceCache := oracle.NewPriceCache(registry)
	refresher := oracle.NewRefresher(
		registry,
		priceCache,
		chain.NewOracleClient(rpc),
		cfg.PriceRefreshInterval,
		observability.NewLogger("oracle"),
		metrics,
	)

	// --- Startup barrier ---
	startupBarrier := barrier.New()

	// --- Optional audit persistence ---
	var auditWriter *persistence.AuditWriter
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open")
		}
		defer db.Close()

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping")
		}
		log.Info().Msg("Postgres connected")

		migrator := persistence.NewMigrator(db, "migrations", observability.NewLogger("migrate"))
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}

		auditWriter = persistence.NewAuditWriter(
			db,
			cfg.AuditBatchSize,
			cfg.AuditFlushTimeout,
			observability.NewLogger("audit"),
			metrics,
		)
	} else {
		log.Warn().Msg("no postgres_url configured, audit trail disabled")
	}

	// --- NATS ---
	nc, js, err := ingestion.ConnectNATS(cfg.NATSURL, observability.NewLogger("nats"))
	if err != nil {
		log.Fatal().Err(err).Msg("nats connect")
	}
	defer nc.Close()
	log.Info().Msg("NATS connected")

	if err := ingestion.EnsureStream(ctx, js); err != nil {
		log.Fatal().Err(err).Msg("ensure NATS stream")
	}

	rawEventChan := make(chan ingestion.RawEvent, 4096)
	source := ingestion.NewNATSSource(js, rawEventChan, observability.NewLogger("nats"))
	if err := source.Subscribe(ctx, ingestion.DefaultSubjects()); err != nil {
		log.Fatal().Err(err).Msg("nats subscribe")
	}

	ingestLoop := ingestion.NewLoop(rawEventChan, store, startupBarrier, observability.NewLogger("ingest"), metrics)

	// --- Executor ---
	exec := executor.New(
		chain.NewRouterClient(cfg.RouterURL, cfg.RPCTimeout),
		chain.NewSubmitterClient(rpc),
		observability.NewLogger("executor"),
		metrics,
	)

	var auditor monitor.Auditor
	if auditWriter != nil {
		auditor = auditWriter
	}

	sweeper := monitor.NewSweeper(
		cfg.SweepInterval,
		store,
		ingestLoop,
		startupBarrier,
		priceCache,
		exec,
		auditor,
		observability.NewLogger("sweep"),
		metrics,
	)

	// --- Start goroutines ---
	errChan := make(chan error, 8)

	go func() { errChan <- ingestLoop.Run(ctx) }()
	go func() { errChan <- refresher.Run(ctx) }()
	go func() { errChan <- sweeper.Run(ctx) }()
	if auditWriter != nil {
		go func() { errChan <- auditWriter.Run(ctx) }()
	}

	// Metrics + health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", healthChecker.LivenessHandler)
		mux.HandleFunc("/readyz", healthChecker.ReadinessHandler)

		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			srv.Shutdown(shutCtx)
		}()

		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	// Readiness: the monitor is ready once backfill has caught up and every
	// asset has a price.
	go func() {
		if err := startupBarrier.Wait(ctx); err != nil {
			return
		}
		if err := priceCache.WaitReady(ctx); err != nil {
			return
		}
		healthChecker.SetReady(true)
		log.Info().
			Int("positions", store.Len()).
			Msg("LiqSentinel ready")
	}()

	// --- Wait for shutdown signal ---
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("goroutine failed, shutting down")
	}

	cancel()
	source.Stop()

	// Give the audit writer a moment to flush its last batch.
	time.Sleep(500 * time.Millisecond)
	log.Info().Msg("LiqSentinel shutdown complete")
}
