package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"school-api/internal/cache"
	"school-api/internal/config"
	"school-api/internal/events"
	"school-api/internal/httpserver"
	"school-api/internal/logging"
	"school-api/internal/loginguard"
	"school-api/internal/ratelimit"
	"school-api/internal/repo"
	"school-api/internal/service"
	"school-api/internal/session"
	"school-api/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New("school-api", cfg.LogLevel)

	ctx := context.Background()
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}

	redisCache := cache.New(cfg.RedisAddr, cfg.RedisPass, 0)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := redisCache.Ping(pingCtx); err != nil {
		cancel()
		log.Fatalf("redis error: %v", err)
	}
	cancel()

	tokenSvc := tokens.NewService([]byte(cfg.LongTokenSecret), []byte(cfg.ShortTokenSecret))
	guard := loginguard.New(db, cfg.MaxLoginAttempts, cfg.LockoutDuration)
	limiter := ratelimit.New(redisCache, cfg.RateLimitWindow, cfg.RateLimitGlobal, cfg.RateLimitAuth)
	sessions := session.NewRegistry(redisCache, tokenSvc.ShortTTL)

	authSvc := &service.AuthService{
		Repo:     &repo.UserRepo{DB: db},
		Guard:    guard,
		Tokens:   tokenSvc,
		Sessions: sessions,
	}

	var producer *events.Producer
	if cfg.KafkaAddress != "" {
		producer = events.NewProducer(cfg.KafkaAddress, "auth_events")
		authSvc.Events = producer
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(httpserver.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Auth:     &httpserver.AuthHTTP{Svc: authSvc},
		Schools:  &httpserver.SchoolHTTP{DB: db},
		Tokens:   tokenSvc,
		Limiter:  limiter,
		Sessions: sessions,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}
	if err := redisCache.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
