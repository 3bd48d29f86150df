package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"place-indexer/config"
	"place-indexer/consumer"
	"place-indexer/domain"
	"place-indexer/driver"
	"place-indexer/gateway"
	"place-indexer/logger"
	"place-indexer/middleware"
	"place-indexer/rest"
	"place-indexer/usecase"
	appOtel "place-indexer/utils/otel"
)

// Components holds the wired application layer. It is shared by the
// server and the one-shot sync command.
type Components struct {
	Config       *config.Config
	SearchEngine *gateway.SearchEngineGateway
	Search       *usecase.SearchPlacesUsecase
	Sync         *usecase.SyncPlacesUsecase
	Ingest       *usecase.IngestChangeUsecase
	Details      *usecase.PlaceDetailsUsecase
	Observations *usecase.ObservationsUsecase

	closers []func()
}

// Close releases drivers in reverse order of creation.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build connects every driver and wires gateways and use cases.
func Build(ctx context.Context, cfg *config.Config) (*Components, error) {
	c := &Components{Config: cfg}

	// ── Drivers (infrastructure layer) ──
	pool, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	dbDriver := driver.NewDatabaseDriver(pool, cfg.Database.Timeout, cfg.Database.ListTimeout)
	c.closers = append(c.closers, dbDriver.Close)

	msClient, err := initMeilisearchClient(ctx, cfg.Meilisearch)
	if err != nil {
		c.Close()
		return nil, err
	}
	searchDriver := driver.NewMeilisearchDriver(msClient, cfg.Meilisearch.IndexName, cfg.Meilisearch.Timeout)

	locker, closeLocker, err := initSyncLocker(ctx, cfg.Redis)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, closeLocker)

	// ── Gateways (anti-corruption layer) ──
	placeRepo := gateway.NewPlaceRepositoryGateway(dbDriver)
	observationRepo := gateway.NewObservationRepositoryGateway(dbDriver)
	c.SearchEngine = gateway.NewSearchEngineGateway(searchDriver)
	syncLock := gateway.NewSyncLockGateway(locker)
	detailCache := gateway.NewPlaceCacheGateway(cfg.Cache.Size, cfg.Cache.TTL)

	// ── Use cases (application layer) ──
	c.Sync = usecase.NewSyncPlacesUsecase(placeRepo, c.SearchEngine, syncLock, detailCache, usecase.SyncPlacesConfig{
		BatchSize:      cfg.Indexer.BatchSize,
		BatchTimeout:   cfg.Indexer.BatchTimeout,
		StalenessGuard: cfg.Indexer.StalenessGuard,
	})
	c.Search = usecase.NewSearchPlacesUsecase(placeRepo, c.SearchEngine, cfg.Query.AmenityPolicy)
	c.Ingest = usecase.NewIngestChangeUsecase(c.Sync)
	c.Details = usecase.NewPlaceDetailsUsecase(placeRepo, observationRepo, detailCache)
	c.Observations = usecase.NewObservationsUsecase(placeRepo, observationRepo, detailCache)

	return c, nil
}

// runtime is the process-wide setup every command needs.
type runtime struct {
	cfg          *config.Config
	otelCfg      appOtel.Config
	otelShutdown appOtel.ShutdownFunc
}

// initRuntime sets up telemetry, the logger and config. otelShutdown is
// set even when an error is returned.
func initRuntime(ctx context.Context) (*runtime, error) {
	otelCfg := appOtel.ConfigFromEnv()
	otelShutdown, err := appOtel.InitProvider(ctx, otelCfg)
	if err != nil {
		fmt.Printf("Failed to initialize OpenTelemetry: %v\n", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	logger.InitWithOTel(otelCfg.Enabled)
	logger.Logger.Info("Starting place-indexer",
		"service", otelCfg.ServiceName,
		"otel_enabled", otelCfg.Enabled,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Error("Failed to load config", "err", err)
		return &runtime{otelCfg: otelCfg, otelShutdown: otelShutdown}, err
	}
	return &runtime{cfg: cfg, otelCfg: otelCfg, otelShutdown: otelShutdown}, nil
}

func flushTelemetry(shutdown appOtel.ShutdownFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		fmt.Printf("Failed to shutdown OpenTelemetry: %v\n", err)
	}
}

// App holds the long-running parts of the server.
type App struct {
	components    *Components
	httpServer    *http.Server
	rateLimiter   *middleware.RateLimiter
	redisConsumer *consumer.Consumer
	otelShutdown  appOtel.ShutdownFunc
}

// Run initializes all components and serves until ctx is cancelled, then
// shuts down gracefully.
func Run(ctx context.Context) error {
	rt, err := initRuntime(ctx)
	if err != nil {
		flushTelemetry(rt.otelShutdown)
		return err
	}
	cfg, otelShutdown := rt.cfg, rt.otelShutdown

	components, err := Build(ctx, cfg)
	if err != nil {
		logger.Logger.Error("Failed to initialize components", "err", err)
		flushTelemetry(otelShutdown)
		return err
	}

	if err := components.SearchEngine.EnsureIndex(ctx); err != nil {
		logger.Logger.Error("Failed to ensure search index", "err", err)
		components.Close()
		flushTelemetry(otelShutdown)
		return err
	}

	// ── Redis Streams Consumer ──
	var redisConsumer *consumer.Consumer
	consumerCfg := consumer.ConfigFromEnv()
	if consumerCfg.Enabled {
		eventHandler := consumer.NewChangeEventHandler(components.Ingest, logger.Logger)
		redisConsumer, err = consumer.NewConsumer(consumerCfg, eventHandler, logger.Logger)
		if err != nil {
			logger.Logger.Error("Failed to create Redis Streams consumer", "err", err)
			redisConsumer = nil
		} else if err := redisConsumer.Start(ctx); err != nil {
			logger.Logger.Error("Failed to start Redis Streams consumer", "err", err)
			redisConsumer = nil
		} else {
			logger.Logger.Info("Redis Streams consumer started",
				"stream", consumerCfg.StreamKey,
				"group", consumerCfg.GroupName,
			)
		}
	} else {
		logger.Logger.Info("Redis Streams consumer disabled")
	}

	// ── Servers ──
	handler := rest.NewHandler(
		components.Search,
		components.Ingest,
		components.Details,
		components.Observations,
		components.Sync,
		cfg.App.IsDevelopment(),
	)
	server, limiter := newHTTPServer(cfg, handler, rt.otelCfg)

	app := &App{
		components:    components,
		httpServer:    server,
		rateLimiter:   limiter,
		redisConsumer: redisConsumer,
		otelShutdown:  otelShutdown,
	}

	go func() {
		logger.Logger.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error("http", "err", err)
		}
	}()

	// ── Wait for shutdown signal ──
	<-ctx.Done()
	app.shutdown()
	return nil
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("http shutdown error", "err", err)
	}
	a.rateLimiter.Stop()
	if a.redisConsumer != nil {
		a.redisConsumer.Stop()
	}
	a.components.Close()
	flushTelemetry(a.otelShutdown)
}

// RunSync performs a full rebuild, or a single-place sync when placeID is
// set, and writes the JSON summary to out.
func RunSync(ctx context.Context, placeID string, out io.Writer) error {
	rt, err := initRuntime(ctx)
	defer flushTelemetry(rt.otelShutdown)
	if err != nil {
		return err
	}

	components, err := Build(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer components.Close()

	if placeID != "" {
		result, err := components.Sync.SyncPlace(ctx, placeID)
		if result != nil {
			writeSummary(out, result)
		}
		return err
	}

	result, err := components.Sync.FullSync(ctx)
	if result != nil {
		writeSummary(out, fullSyncSummary{FullSyncResult: result, DurationMs: result.Duration.Milliseconds()})
	}
	return err
}

type fullSyncSummary struct {
	*domain.FullSyncResult
	DurationMs int64 `json:"durationMs"`
}

func writeSummary(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Logger.Warn("failed to write sync summary", "err", err)
	}
}
