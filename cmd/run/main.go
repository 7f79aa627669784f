// One-shot runner for manual and cron-external use: `run collect`,
// `run analyze` or `run full`. Shares the daemon's configuration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/finpulse/finpulse-bot/internal/analysis"
	"github.com/finpulse/finpulse-bot/internal/cache"
	"github.com/finpulse/finpulse-bot/internal/config"
	"github.com/finpulse/finpulse-bot/internal/feed"
	"github.com/finpulse/finpulse-bot/internal/insights"
	"github.com/finpulse/finpulse-bot/internal/notifications"
	"github.com/finpulse/finpulse-bot/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: run <collect|analyze|full>")
		os.Exit(2)
	}
	mode := os.Args[1]

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

	lexicon := analysis.DefaultLexicon()
	if cfg.LexiconPath != "" {
		lexicon, err = analysis.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			logrus.Fatalf("Failed to load lexicon: %v", err)
		}
	}

	var store cache.Store
	if cfg.CacheBackend == "redis" {
		store, err = cache.NewRedisStore(cfg.RedisURL, lexicon.Version())
	} else {
		store, err = cache.NewFileStore(cfg.CacheDir, lexicon.Version())
	}
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

	service := pipeline.NewService(cfg, store, client, lexicon, opts...)
	ctx := context.Background()

	switch mode {
	case "collect":
		result, err := service.RunCollection(ctx)
		if err != nil {
			logrus.Fatalf("Collection failed: %v", err)
		}
		printJSON(result)

	case "analyze":
		data, err := service.RunAnalysis(ctx)
		if err != nil {
			logrus.Fatalf("Analysis failed: %v", err)
		}
		printJSON(data)

	case "full":
		data, err := service.Run(ctx)
		if err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
		printJSON(data)

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want collect, analyze or full)\n", mode)
		os.Exit(2)
	}
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.Errorf("Failed to render result: %v", err)
		return
	}
	fmt.Println(string(data))
}
