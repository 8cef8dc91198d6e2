package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"school-api/internal/loginguard"
	"school-api/internal/models"
	"school-api/internal/ratelimit"
)

type Config struct {
	Port         string
	LogLevel     string
	DatabaseURL  string
	RedisAddr    string
	RedisPass    string
	KafkaAddress string

	LongTokenSecret  string
	ShortTokenSecret string

	MaxLoginAttempts int
	LockoutDuration  time.Duration

	RateLimitWindow time.Duration
	RateLimitGlobal int
	RateLimitAuth   int
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found, using system environment variables")
	}

	cfg := &Config{
		Port:             getenv("PORT", "8080"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPass:        os.Getenv("REDIS_PASSWORD"),
		KafkaAddress:     os.Getenv("KAFKA_ADDRESS"),
		LongTokenSecret:  os.Getenv("LONG_TOKEN_SECRET"),
		ShortTokenSecret: os.Getenv("SHORT_TOKEN_SECRET"),
		MaxLoginAttempts: getenvInt("MAX_LOGIN_ATTEMPTS", loginguard.DefaultMaxAttempts),
		LockoutDuration:  getenvDuration("LOCKOUT_DURATION", loginguard.DefaultLockoutDuration),
		RateLimitWindow:  getenvDuration("RATE_LIMIT_WINDOW", ratelimit.DefaultWindow),
		RateLimitGlobal:  getenvInt("RATE_LIMIT_GLOBAL", ratelimit.DefaultGlobalLimit),
		RateLimitAuth:    getenvInt("RATE_LIMIT_AUTH", ratelimit.DefaultAuthLimit),
	}

	if cfg.LongTokenSecret == "" || cfg.ShortTokenSecret == "" {
		return nil, fmt.Errorf("LONG_TOKEN_SECRET and SHORT_TOKEN_SECRET are required")
	}
	if cfg.LongTokenSecret == cfg.ShortTokenSecret {
		return nil, fmt.Errorf("LONG_TOKEN_SECRET and SHORT_TOKEN_SECRET must differ")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("notice: invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("notice: invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func InitDB(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.School{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
