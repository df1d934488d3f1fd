package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"classtrade/internal/admin"
	"classtrade/internal/cache"
	"classtrade/internal/config"
	"classtrade/internal/db"
	"classtrade/internal/game"
)

// classtrade-migrate applies schema migrations, seeds the default stock list
// and creates the bootstrap administrator. Every step is safe to re-run.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}
	version, err := db.MigrationVersion(ctx, pool)
	if err != nil {
		logger.Error("read schema version failed", "err", err)
		os.Exit(1)
	}
	logger.Info("schema up to date", "version", version)

	svc := admin.NewService(pool, game.NewService(pool, cache.New(nil, ""), logger, 0), logger)
	if cfg.SeedStocks {
		n, err := svc.SeedStocks(ctx)
		if err != nil {
			logger.Error("seed stocks failed", "err", err)
			os.Exit(1)
		}
		logger.Info("default stocks seeded", "inserted", n)
	}

	if cfg.BootstrapEmail != "" {
		if len(cfg.BootstrapPass) < 8 {
			logger.Error("CLASSTRADE_BOOTSTRAP_ADMIN_PASSWORD must be at least 8 characters")
			os.Exit(1)
		}
		a, created, err := svc.CreateAdmin(ctx, cfg.BootstrapEmail, "Administrator", cfg.BootstrapPass)
		if err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}
		logger.Info("bootstrap admin", "email", a.Email, "created", created)
	}
}
