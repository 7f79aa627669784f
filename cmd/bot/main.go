package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finpulse/finpulse-bot/internal/analysis"
	"github.com/finpulse/finpulse-bot/internal/cache"
	"github.com/finpulse/finpulse-bot/internal/config"
	"github.com/finpulse/finpulse-bot/internal/feed"
	"github.com/finpulse/finpulse-bot/internal/insights"
	"github.com/finpulse/finpulse-bot/internal/notifications"
	"github.com/finpulse/finpulse-bot/internal/pipeline"
	"github.com/finpulse/finpulse-bot/internal/scheduler"
	"github.com/finpulse/finpulse-bot/internal/storage"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting FinPulse sentiment bot")

	lexicon, err := loadLexicon(cfg)
	if err != nil {
		logrus.Fatalf("Failed to load lexicon: %v", err)
	}

	store, err := openStore(cfg, lexicon.Version())
	if err != nil {
		logrus.Fatalf("Failed to open post cache: %v", err)
	}
	defer store.Close()

	limiter := feed.NewRateLimiter(time.Duration(cfg.FeedMinIntervalSec) * time.Second)
	client := feed.NewClient(cfg.FeedBaseURL, cfg.FeedAPIKey, limiter)

	opts := []pipeline.Option{
		pipeline.WithNotifier(notifications.NewService(cfg)),
	}
	if cfg.ClaudeAPIKey != "" {
		opts = append(opts, pipeline.WithAnalyst(insights.NewClaudeAnalyst(cfg.ClaudeAPIKey)))
	}
	if cfg.StorageAccount != "" {
		archive, err := storage.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize snapshot archive: %v", err)
		}
		opts = append(opts, pipeline.WithArchive(archive))
	}

	pipelineService := pipeline.NewService(cfg, store, client, lexicon, opts...)

	schedulerService := scheduler.NewService(cfg, pipelineService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// HTTP surface for health checks and manual triggers
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(pipelineService)).Methods("GET")
	router.HandleFunc("/trigger/collect", triggerCollectHandler(pipelineService)).Methods("POST")
	router.HandleFunc("/trigger/analyze", triggerAnalyzeHandler(pipelineService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func loadLexicon(cfg *config.Config) (*analysis.Lexicon, error) {
	if cfg.LexiconPath == "" {
		return analysis.DefaultLexicon(), nil
	}
	return analysis.LoadLexicon(cfg.LexiconPath)
}

func openStore(cfg *config.Config, version int) (cache.Store, error) {
	if cfg.CacheBackend == "redis" {
		return cache.NewRedisStore(cfg.RedisURL, version)
	}
	return cache.NewFileStore(cfg.CacheDir, version)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(pipelineService *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(pipelineService.GetMetrics()))
	}
}

func triggerCollectHandler(pipelineService *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if _, err := pipelineService.RunCollection(context.Background()); err != nil {
				logrus.Errorf("Manual collection trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Collection triggered"}`))
	}
}

func triggerAnalyzeHandler(pipelineService *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if _, err := pipelineService.RunAnalysis(context.Background()); err != nil {
				logrus.Errorf("Manual analysis trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Analysis triggered"}`))
	}
}
