package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTSecret       string
	JWTAccessTTL    time.Duration
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	CatalogFile     string
	Permission      PermissionConfig
	Progress        ProgressConfig
	LogLevel        string
	ShutdownTimeout time.Duration
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// PermissionConfig ajusta o resolvedor de permissões.
type PermissionConfig struct {
	CacheTTL time.Duration
	Timeout  time.Duration
}

// ProgressConfig controla a serialização opcional de recálculos por projeto.
type ProgressConfig struct {
	Serialize     bool
	LockTTL       time.Duration
	SweepInterval time.Duration
	AlertWebhook  string
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv lê a configuração do ambiente corrente sem consultar arquivos .env.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = strings.TrimSpace(getEnv("DB_DSN", ""))
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	if cfg.RateLimitPublic, err = parseRateLimitEnv("RATE_LIMIT_PUBLIC", RateLimitConfig{RequestsPerSecond: 10, Burst: 20}); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = parseRateLimitEnv("RATE_LIMIT_AUTH", RateLimitConfig{RequestsPerSecond: 10, Burst: 40}); err != nil {
		return nil, err
	}

	cfg.CatalogFile = strings.TrimSpace(getEnv("EXECUTIVE_CATALOG_FILE", ""))

	if cfg.Permission.CacheTTL, err = parseDurationEnv("PERMISSION_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Permission.Timeout, err = parseDurationEnv("PERMISSION_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}

	if cfg.Progress.Serialize, err = parseBoolEnv("PROGRESS_SERIALIZE", false); err != nil {
		return nil, err
	}
	if cfg.Progress.LockTTL, err = parseDurationEnv("PROGRESS_LOCK_TTL", 5*time.Second); err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(getEnv("PROGRESS_SWEEP_INTERVAL", "")); raw != "" && raw != "0" {
		if cfg.Progress.SweepInterval, err = parseDurationEnv("PROGRESS_SWEEP_INTERVAL", 0); err != nil {
			return nil, err
		}
	}
	cfg.Progress.AlertWebhook = strings.TrimSpace(getEnv("PROGRESS_ALERT_WEBHOOK", ""))

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info")))
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " inválido")
	}
	return b, nil
}

// parseRateLimitEnv lê limites no formato "taxa:rajada", por exemplo "10:20".
func parseRateLimitEnv(key string, def RateLimitConfig) (RateLimitConfig, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	rateStr, burstStr, ok := strings.Cut(val, ":")
	if !ok {
		return RateLimitConfig{}, errors.New(key + " inválido")
	}
	rps, err := strconv.ParseFloat(strings.TrimSpace(rateStr), 64)
	if err != nil || rps <= 0 {
		return RateLimitConfig{}, errors.New(key + " inválido")
	}
	burst, err := strconv.Atoi(strings.TrimSpace(burstStr))
	if err != nil || burst <= 0 {
		return RateLimitConfig{}, errors.New(key + " inválido")
	}
	return RateLimitConfig{RequestsPerSecond: rps, Burst: burst}, nil
}
