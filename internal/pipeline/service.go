// Package pipeline wires the collector, cache and analysis engine into the
// two entry points the scheduler calls: RunCollection and RunAnalysis. Each
// is independent and idempotent, so a scheduler (or a manual trigger) can
// invoke either alone.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/finpulse/finpulse-bot/internal/analysis"
	"github.com/finpulse/finpulse-bot/internal/cache"
	"github.com/finpulse/finpulse-bot/internal/collector"
	"github.com/finpulse/finpulse-bot/internal/config"
	"github.com/finpulse/finpulse-bot/internal/insights"
	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/finpulse/finpulse-bot/internal/notifications"
	"github.com/finpulse/finpulse-bot/internal/report"
	"github.com/finpulse/finpulse-bot/internal/storage"
	"github.com/sirupsen/logrus"
)

// Service orchestrates collection, scoring and aggregation runs.
type Service struct {
	config      *config.Config
	store       cache.Store
	collector   *collector.Collector
	scorer      *analysis.Scorer
	categorizer *analysis.Categorizer
	builder     *report.Builder

	// Optional collaborators; each may be nil and each degrades
	// gracefully on failure.
	analyst  insights.Analyst
	notifier notifications.Notifier
	archive  storage.Archiver

	accountHints map[string]string

	mu           sync.RWMutex
	metrics      *Metrics
	lastReport   *models.ReportData
	lastAnalysis time.Time
}

// Metrics tracks run outcomes, exposed over the HTTP surface.
type Metrics struct {
	LastCollection         time.Time               `json:"last_collection"`
	LastCollectionDuration string                  `json:"last_collection_duration"`
	LastCollectionResult   models.CollectionResult `json:"last_collection_result"`
	LastAnalysis           time.Time               `json:"last_analysis"`
	LastAnalysisDuration   string                  `json:"last_analysis_duration"`
	CachedPosts            int                     `json:"cached_posts"`
	RescoredPosts          int                     `json:"rescored_posts"`
	SentimentBreakdown     map[string]int          `json:"sentiment_breakdown"`
	ErrorCount             int                     `json:"error_count"`
}

// Option configures optional collaborators.
type Option func(*Service)

// WithAnalyst attaches the LLM narrative collaborator.
func WithAnalyst(analyst insights.Analyst) Option {
	return func(s *Service) { s.analyst = analyst }
}

// WithNotifier attaches the run summary notifier.
func WithNotifier(notifier notifications.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithArchive attaches the snapshot archiver.
func WithArchive(archive storage.Archiver) Option {
	return func(s *Service) { s.archive = archive }
}

// NewService creates the pipeline service.
func NewService(cfg *config.Config, store cache.Store, source collector.FeedSource, lexicon *analysis.Lexicon, opts ...Option) *Service {
	hints := make(map[string]string, len(cfg.Accounts))
	for _, account := range cfg.Accounts {
		hints[account.Handle] = account.DefaultCategory
	}

	service := &Service{
		config:       cfg,
		store:        store,
		collector:    collector.New(source, store),
		scorer:       analysis.NewScorer(lexicon),
		categorizer:  analysis.NewCategorizer(cfg.CategoryOverrides, analysis.DefaultRules(), cfg.DefaultCategory),
		builder:      report.NewBuilder(lexicon.Version()),
		accountHints: hints,
		metrics: &Metrics{
			SentimentBreakdown: make(map[string]int),
		},
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// RunCollection fetches new posts for every tracked account. Per-account
// failures are isolated into the result; the error return is reserved for
// total failures such as a broken cache.
func (s *Service) RunCollection(ctx context.Context) (models.CollectionResult, error) {
	start := time.Now()
	logrus.Info("Starting collection run")

	lookback := time.Duration(s.config.LookbackHours) * time.Hour
	result := s.collector.Collect(ctx, s.config.Accounts, lookback)

	s.mu.Lock()
	s.metrics.LastCollection = time.Now()
	s.metrics.LastCollectionDuration = time.Since(start).String()
	s.metrics.LastCollectionResult = result
	s.metrics.ErrorCount = len(result.Errors)
	s.mu.Unlock()

	logrus.Infof("Collection run completed in %v", time.Since(start))
	return result, nil
}

// RunAnalysis re-scores every cached post whose derived fields are missing
// or stamped with an outdated lexicon version, then aggregates and hands the
// report to the optional collaborators. Raw posts are never re-fetched.
func (s *Service) RunAnalysis(ctx context.Context) (models.ReportData, error) {
	start := time.Now()
	logrus.Info("Starting analysis run")

	posts, err := s.store.All(cache.Filter{})
	if err != nil {
		return models.ReportData{}, fmt.Errorf("failed to read cache: %w", err)
	}

	rescored := 0
	scoreErrors := 0
	for i, post := range posts {
		if post.Scored() && post.CacheVersion == s.store.Version() {
			continue
		}

		score, signals := s.scorer.Score(post.Text)
		category := s.categorizer.Categorize(post, s.accountHints[post.Account])

		if err := s.store.UpdateDerived(post.ID, category, score, signals); err != nil {
			// The id came from the cache moments ago; treat a miss as a
			// per-post fault, log it and move on.
			if errors.Is(err, cache.ErrNotFound) {
				logrus.Errorf("Post %s vanished from cache during analysis", post.ID)
			} else {
				logrus.Errorf("Failed to update derived fields for %s: %v", post.ID, err)
			}
			scoreErrors++
			continue
		}

		posts[i].Category = category
		posts[i].SentimentScore = &score
		posts[i].Signals = signals
		posts[i].CacheVersion = s.store.Version()
		rescored++
	}

	s.mu.RLock()
	previousAnalysis := s.lastAnalysis
	s.mu.RUnlock()

	var newPosts []models.Post
	for _, post := range posts {
		if previousAnalysis.IsZero() || post.FetchedAt.After(previousAnalysis) {
			newPosts = append(newPosts, post)
		}
	}

	data := s.builder.Build(posts, newPosts)
	s.attachNarrative(ctx, &data)
	s.deliver(data)

	s.mu.Lock()
	s.lastAnalysis = time.Now()
	s.lastReport = &data
	s.metrics.LastAnalysis = s.lastAnalysis
	s.metrics.LastAnalysisDuration = time.Since(start).String()
	s.metrics.CachedPosts = len(posts)
	s.metrics.RescoredPosts = rescored
	s.metrics.ErrorCount += scoreErrors
	s.metrics.SentimentBreakdown = sentimentBreakdown(posts)
	s.mu.Unlock()

	logrus.Infof("Analysis run completed in %v: %d posts, %d rescored, %d errors",
		time.Since(start), len(posts), rescored, scoreErrors)

	return data, nil
}

// Run executes a full collect-then-analyze cycle.
func (s *Service) Run(ctx context.Context) (models.ReportData, error) {
	if _, err := s.RunCollection(ctx); err != nil {
		return models.ReportData{}, err
	}
	return s.RunAnalysis(ctx)
}

func (s *Service) attachNarrative(ctx context.Context, data *models.ReportData) {
	if s.analyst == nil {
		return
	}

	narrativeCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	narrative, err := s.analyst.Narrative(narrativeCtx, *data)
	if err != nil {
		logrus.Warnf("Narrative generation failed, continuing without it: %v", err)
		return
	}
	data.Narrative = narrative
}

func (s *Service) deliver(data models.ReportData) {
	if s.notifier != nil {
		if err := s.notifier.SendRunReport(data); err != nil {
			logrus.Warnf("Run summary delivery failed: %v", err)
		}
	}

	if s.archive != nil {
		snapshot, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			logrus.Errorf("Failed to marshal report snapshot: %v", err)
			return
		}

		name := fmt.Sprintf("report-%s.json", data.GeneratedAt.Format("2006-01-02-15-04-05"))
		if err := s.archive.Store(name, snapshot); err != nil {
			logrus.Warnf("Snapshot archive failed: %v", err)
		}
	}
}

// LastReport returns the most recent report, or nil before the first
// analysis run.
func (s *Service) LastReport() *models.ReportData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// GetMetrics returns current metrics as JSON.
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

func sentimentBreakdown(posts []models.Post) map[string]int {
	breakdown := make(map[string]int)
	for _, post := range posts {
		switch {
		case !post.Scored():
			breakdown["unscored"]++
		case *post.SentimentScore > 0.1:
			breakdown["positive"]++
		case *post.SentimentScore < -0.1:
			breakdown["negative"]++
		default:
			breakdown["neutral"]++
		}
	}
	return breakdown
}
