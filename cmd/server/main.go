package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/davidkorenblit/fpl-assistant/internal/api"
	"github.com/davidkorenblit/fpl-assistant/internal/api/handlers"
	"github.com/davidkorenblit/fpl-assistant/internal/config"
	"github.com/davidkorenblit/fpl-assistant/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.InitLogger("info", false)
		logger.GetLogger().WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log.WithField("env", cfg.Env).Info("Starting fpl-assistant")

	redisClient := connectRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	h := handlers.NewHandler(cfg, redisClient)
	router := api.SetupRouter(h, cfg.IsDevelopment())

	// periodic sweep keeps long-idle cache partitions from holding memory
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 5m", func() {
		if evicted := h.EvictExpired(); evicted > 0 {
			log.WithField("evicted", evicted).Debug("Cache sweep completed")
		}
	}); err != nil {
		log.WithError(err).Fatal("Failed to schedule cache sweep")
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
	log.Info("Server stopped")
}

// connectRedis opens the optional squad-snapshot store. A missing or
// unreachable Redis downgrades to in-memory caching only.
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}

	log := logger.GetLogger()
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("Invalid REDIS_URL, continuing without Redis")
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis unreachable, continuing without snapshot cache")
		client.Close()
		return nil
	}

	log.Info("Redis snapshot cache connected")
	return client
}
