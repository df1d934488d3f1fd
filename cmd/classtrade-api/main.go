package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classtrade/internal/admin"
	"classtrade/internal/aigen"
	"classtrade/internal/api"
	"classtrade/internal/auth"
	"classtrade/internal/cache"
	"classtrade/internal/config"
	"classtrade/internal/db"
	"classtrade/internal/game"
	"classtrade/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

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
	metrics.RegisterPool(prometheus.DefaultRegisterer, func() metrics.PoolStats { return pool.Stat() })

	// Without REDIS_URL every ranking read is computed from the database.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	} else {
		logger.Warn("REDIS_URL not set, ranking cache disabled")
	}

	var model aigen.Model
	if cfg.GeminiAPIKey != "" {
		gemini, err := aigen.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("gemini client init failed", "err", err)
			os.Exit(1)
		}
		defer gemini.Close()
		model = gemini
	}

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL, cfg.QRTokenTTL)
	gameSvc := game.NewService(pool, cache.New(rdb, "classtrade:"), logger, cfg.RankingTTL)
	adminSvc := admin.NewService(pool, gameSvc, logger)

	server := api.New(cfg, logger, tokens, gameSvc, adminSvc, aigen.NewGenerator(model))
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("classtrade api listening", "addr", cfg.Addr, "ai_generator", model != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
