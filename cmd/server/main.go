// Command server runs the fitness backend HTTP API and the scheduled
// notification trigger pipeline.
//
// Startup order:
//  1. Load .env (best effort) and the validated configuration.
//  2. Configure zerolog and OpenTelemetry.
//  3. Open SQLite, run migrations.
//  4. Build the page cache, event bus, push client, and Gin router.
//  5. Start the cron scheduler and the HTTP server.
//
// Shutdown is graceful: SIGINT/SIGTERM drains in-flight requests, stops the
// scheduler, and flushes traces before exit.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/fitstack/go-fitness-backend/docs" // swagger spec registration
	"github.com/fitstack/go-fitness-backend/internal/cache"
	"github.com/fitstack/go-fitness-backend/internal/config"
	"github.com/fitstack/go-fitness-backend/internal/events"
	httpapi "github.com/fitstack/go-fitness-backend/internal/http"
	"github.com/fitstack/go-fitness-backend/internal/observability"
	"github.com/fitstack/go-fitness-backend/internal/push"
	"github.com/fitstack/go-fitness-backend/internal/repo"
	"github.com/fitstack/go-fitness-backend/internal/scheduler"
	"github.com/fitstack/go-fitness-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is a local development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	pageCache := cache.New(cache.Options{
		MaxEntriesPerPage: cfg.Cache.MaxEntriesPerPage,
		DefaultTTL:        cfg.Cache.DefaultTTL,
		PageTTLs:          cfg.Cache.PageTTLs,
	})
	bus := events.NewBus()
	pusher := push.NewClient(push.Config{
		URL:       cfg.Push.GatewayURL,
		Token:     cfg.Push.Token,
		BatchSize: cfg.Push.BatchSize,
		Timeout:   cfg.Push.Timeout,
	})

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:    db,
		Cache: pageCache,
		Bus:   bus,
		Push:  pusher,
	}, cfg)

	// The scheduler gets its own service instance; it shares the repo shims
	// through the router only at the DB level, which is safe for concurrent use.
	var sched *scheduler.Scheduler
	if cfg.Pipeline.Enabled {
		notifSvc := httpapi.NewNotificationService(db, pusher)
		sched = scheduler.New(cfg.Pipeline.CronSpec, notifSvc, time.Hour)
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Pipeline.CronSpec).Msg("scheduler start failed")
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if sched != nil {
		sched.Stop()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("server stopped")
}
