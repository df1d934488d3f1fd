package config

import (
	"testing"
	"time"
)

func TestLoadAPIFromEnvRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("CLASSTRADE_ENV_FILE", "does-not-exist.env")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CLASSTRADE_JWT_SECRET", "")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected missing DATABASE_URL to fail")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/classtrade")
	t.Setenv("CLASSTRADE_JWT_SECRET", "short")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}

func TestLoadAPIFromEnvDefaults(t *testing.T) {
	t.Setenv("CLASSTRADE_ENV_FILE", "does-not-exist.env")
	t.Setenv("DATABASE_URL", "postgres://localhost/classtrade")
	t.Setenv("CLASSTRADE_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PORT", "9090")
	t.Setenv("CLASSTRADE_RANKING_TTL", "not-a-duration")
	t.Setenv("PUBLIC_BASE_URL", "https://class.example.com/")
	t.Setenv("CLASSTRADE_DB_MAX_CONNS", "lots")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr=%q want :9090", cfg.Addr)
	}
	if cfg.RankingTTL != 60*time.Second {
		t.Fatalf("ranking ttl=%s want 60s", cfg.RankingTTL)
	}
	if cfg.QRTokenTTL != 10*time.Minute {
		t.Fatalf("qr ttl=%s want 10m", cfg.QRTokenTTL)
	}
	if cfg.PublicBaseURL != "https://class.example.com" {
		t.Fatalf("public base url=%q", cfg.PublicBaseURL)
	}
	if !cfg.SeedStocks {
		t.Fatalf("expected stock seeding on by default")
	}
	if cfg.DBMaxConns != 20 {
		t.Fatalf("db max conns=%d want 20", cfg.DBMaxConns)
	}
}
