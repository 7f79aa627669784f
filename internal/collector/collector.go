// Package collector orchestrates the feed client and the post cache: it
// fetches recent posts for every tracked account, skips what is already
// cached and writes through the rest.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/finpulse/finpulse-bot/internal/cache"
	"github.com/finpulse/finpulse-bot/internal/feed"
	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// FeedSource is what the collector needs from the feed API. *feed.Client
// satisfies it; tests substitute a fake.
type FeedSource interface {
	FetchRecent(ctx context.Context, handle string, since time.Time) ([]models.Post, error)
}

// Collector drives one collection run across the tracked accounts.
type Collector struct {
	source FeedSource
	store  cache.Store
	now    func() time.Time
}

// New creates a collector writing through to the given store.
func New(source FeedSource, store cache.Store) *Collector {
	return &Collector{
		source: source,
		store:  store,
		now:    time.Now,
	}
}

// Collect fetches recent posts for every account, bounded by the lookback
// window. Accounts are visited sequentially because the API quota is global.
// One account's failure never aborts the batch: the error is recorded in the
// result and the run moves on. Counts are exact even under partial failure.
func (c *Collector) Collect(ctx context.Context, accounts []models.Account, lookback time.Duration) models.CollectionResult {
	result := models.CollectionResult{}
	since := c.now().Add(-lookback)

	logrus.Infof("Starting collection for %d accounts (lookback %v)", len(accounts), lookback)

	for _, account := range accounts {
		posts, err := c.source.FetchRecent(ctx, account.Handle, since)
		if err != nil {
			c.recordFailure(&result, account.Handle, err)
			continue
		}

		for _, post := range posts {
			result.FetchedCount++

			if c.store.Has(post.ID) {
				result.SkippedCount++
				continue
			}

			post.FetchedAt = c.now().UTC()
			inserted, err := c.store.UpsertRaw(post)
			if err != nil {
				logrus.Errorf("Failed to cache post %s from @%s: %v", post.ID, account.Handle, err)
				result.Errors = append(result.Errors, err.Error())
				continue
			}

			if inserted {
				result.NewCount++
			} else {
				result.SkippedCount++
			}
		}

		logrus.Infof("Collected @%s: %d fetched, %d new so far", account.Handle, len(posts), result.NewCount)
	}

	logrus.Infof("Collection finished: %d fetched, %d new, %d skipped, %d errors",
		result.FetchedCount, result.NewCount, result.SkippedCount, len(result.Errors))

	return result
}

func (c *Collector) recordFailure(result *models.CollectionResult, handle string, err error) {
	result.Errors = append(result.Errors, err.Error())
	result.FailedAccounts = append(result.FailedAccounts, handle)

	var permanent *feed.PermanentError
	switch {
	case errors.As(err, &permanent):
		logrus.Errorf("Skipping @%s for this run: %v", handle, err)
	default:
		logrus.Warnf("Fetch failed for @%s, continuing with remaining accounts: %v", handle, err)
	}
}
