package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bloodbank/internal/app"
	"bloodbank/internal/platform/config"
	"bloodbank/internal/platform/httpserver"
	"bloodbank/internal/platform/logger"
	"bloodbank/internal/platform/postgres"
	"bloodbank/internal/platform/redis"
	httptransport "bloodbank/internal/transport/http"
)

// main wires the configured stores into the application and runs the HTTP
// server until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.UsesDefaultSigningKey() {
		log.Warn("JWT_SIGNING_KEY is not set, using the development key")
	}

	checks := map[string]httptransport.HealthCheck{}
	stores := app.MemoryStores()

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		stores = app.PostgresStores(db)
		checks["postgres"] = db.PingContext
		log.Info("using postgres stores", "driver", cfg.Database.Driver)
	} else {
		log.Info("DATABASE_URL is not set, using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		stores = stores.WithRedis(rc.Client)
		checks["redis"] = rc.Health
		log.Info("using redis for sessions and rate limits")
	}

	a := app.New(cfg, stores, log, checks)
	if err := a.Identity.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		return err
	}

	return httpserver.Run(ctx, httpserver.New(cfg.Addr, a.Router), log)
}
