package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL        string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	DBConnectTimeout   time.Duration
	JWTSecretKey       string
	ServerPort         int
	LogLevel           slog.Level
	CORSAllowedOrigins []string
	RunMigrations      bool

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	ChallengeTTL      time.Duration
	SchedulerInterval time.Duration
}

// StorageEnabled reports whether all R2 settings are present.
func (c *Config) StorageEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	maxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil || maxOpen <= 0 {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS environment variable %q", os.Getenv("DB_MAX_OPEN_CONNS"))
	}
	maxIdle, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", strconv.Itoa(maxOpen)))
	if err != nil || maxIdle < 0 || maxIdle > maxOpen {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS environment variable %q (0..%d)", os.Getenv("DB_MAX_IDLE_CONNS"), maxOpen)
	}
	connLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil || connLifetime <= 0 {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME environment variable %q", os.Getenv("DB_CONN_MAX_LIFETIME"))
	}
	connectTimeout, err := time.ParseDuration(getEnv("DB_CONNECT_TIMEOUT", "5s"))
	if err != nil || connectTimeout <= 0 {
		return nil, fmt.Errorf("invalid DB_CONNECT_TIMEOUT environment variable %q", os.Getenv("DB_CONNECT_TIMEOUT"))
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	challengeTTL, err := time.ParseDuration(getEnv("CHALLENGE_TTL", "72h"))
	if err != nil || challengeTTL <= 0 {
		return nil, fmt.Errorf("invalid CHALLENGE_TTL environment variable %q", os.Getenv("CHALLENGE_TTL"))
	}

	schedulerInterval, err := time.ParseDuration(getEnv("SCHEDULER_INTERVAL", "1m"))
	if err != nil || schedulerInterval < time.Second {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL environment variable %q (minimum 1s)", os.Getenv("SCHEDULER_INTERVAL"))
	}

	runMigrations, err := strconv.ParseBool(getEnv("RUN_MIGRATIONS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_MIGRATIONS environment variable: %w", err)
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		DBMaxOpenConns:     maxOpen,
		DBMaxIdleConns:     maxIdle,
		DBConnMaxLifetime:  connLifetime,
		DBConnectTimeout:   connectTimeout,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		LogLevel:           level,
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RunMigrations:      runMigrations,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		ChallengeTTL:      challengeTTL,
		SchedulerInterval: schedulerInterval,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
