package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr           string
	DatabaseURL    string
	DBMaxConns     int32
	RedisURL       string
	JWTSecret      string
	PublicBaseURL  string
	SessionTTL     time.Duration
	QRTokenTTL     time.Duration
	RankingTTL     time.Duration
	GeminiAPIKey   string
	GeminiModel    string
	SeedStocks     bool
	BootstrapEmail string
	BootstrapPass  string
}

type CLIConfig struct {
	APIBaseURL string
}

// loadDotEnv reads .env from the working directory when present. Variables
// already set in the process environment win.
func loadDotEnv() {
	path := envDefault("CLASSTRADE_ENV_FILE", ".env")
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

func LoadAPIFromEnv() (APIConfig, error) {
	loadDotEnv()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("CLASSTRADE_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:           addr,
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:     int32(envIntDefault("CLASSTRADE_DB_MAX_CONNS", 20)),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		JWTSecret:      strings.TrimSpace(os.Getenv("CLASSTRADE_JWT_SECRET")),
		PublicBaseURL:  strings.TrimRight(envDefault("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		SessionTTL:     envDurationDefault("CLASSTRADE_SESSION_TTL", 12*time.Hour),
		QRTokenTTL:     envDurationDefault("CLASSTRADE_QR_TTL", 10*time.Minute),
		RankingTTL:     envDurationDefault("CLASSTRADE_RANKING_TTL", 60*time.Second),
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    envDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		SeedStocks:     envBoolDefault("CLASSTRADE_SEED_STOCKS", true),
		BootstrapEmail: strings.ToLower(strings.TrimSpace(os.Getenv("CLASSTRADE_BOOTSTRAP_ADMIN_EMAIL"))),
		BootstrapPass:  os.Getenv("CLASSTRADE_BOOTSTRAP_ADMIN_PASSWORD"),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return cfg, fmt.Errorf("CLASSTRADE_JWT_SECRET must be at least 32 bytes")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	loadDotEnv()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("CTADM_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 1000 {
		return fallback
	}
	return n
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
