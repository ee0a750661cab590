package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brainytots/whatsapp-connect/internal/api/router"
	"github.com/brainytots/whatsapp-connect/internal/backend"
	appconfig "github.com/brainytots/whatsapp-connect/internal/config"
	"github.com/brainytots/whatsapp-connect/internal/flow"
	"github.com/brainytots/whatsapp-connect/internal/observability/metrics"
	"github.com/brainytots/whatsapp-connect/internal/state"
	"github.com/brainytots/whatsapp-connect/internal/webhook"
	"github.com/brainytots/whatsapp-connect/internal/whapi"
	"github.com/brainytots/whatsapp-connect/pkg/logging"
)

func main() {
	// Load .env in development; real deployments set environment variables.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting whatsapp-connect",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Conversation state store. Redis is the expected backend; running on
	// process-local memory must be an explicit choice.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisOpts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(redisOpts)
	}
	store, err := state.New(state.Options{
		Client:              redisClient,
		TTL:                 cfg.SessionTimeout,
		AllowMemoryFallback: cfg.AllowMemoryStateOnly,
		Logger:              logger,
	})
	if err != nil {
		logger.Error("failed to initialize state store", "error", err)
		os.Exit(1)
	}

	backendClient := backend.NewClient(cfg.BackendAPIURL, cfg.BackendTimeout, logger)
	if !backendClient.HealthCheck(context.Background()) {
		logger.Warn("assessment backend unreachable at startup", "url", cfg.BackendAPIURL)
	}

	whapiClient := whapi.NewClient(cfg.WhapiAPIURL, cfg.WhapiAPIToken, logger)

	conversationMetrics := metrics.NewConversationMetrics(prometheus.DefaultRegisterer)

	flowHandler := flow.NewHandler(flow.Config{
		Store:          store,
		Backend:        backendClient,
		Messenger:      whapiClient,
		ResultsBaseURL: cfg.ResultsBaseURL,
		Logger:         logger,
		Metrics:        conversationMetrics,
	})

	webhookHandler := webhook.NewHandler(webhook.Config{
		Flow:     flowHandler,
		Receipts: whapiClient,
		Logger:   logger,
		Metrics:  conversationMetrics,
	})

	r := router.New(&router.Config{
		Logger:         logger,
		WebhookHandler: webhookHandler,
		HealthHandler: router.Health(store, func() bool {
			return backendClient.HealthCheck(context.Background())
		}),
		MetricsHandler: promhttp.Handler(),
		WhatsAppNumber: cfg.WhatsAppNumber,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Let in-flight conversation turns finish before exiting.
	webhookHandler.Wait()

	logger.Info("server stopped")
}
