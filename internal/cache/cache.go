// Package cache provides the durable post store that makes collection
// idempotent and resumable. Raw post fields are written once and never
// overwritten; derived fields (category, sentiment, signals) are rewritten
// whenever the lexicon version moves.
package cache

import (
	"errors"
	"sort"
	"time"

	"github.com/finpulse/finpulse-bot/internal/models"
)

// ErrNotFound is returned by UpdateDerived when the post id is not cached.
var ErrNotFound = errors.New("post not found in cache")

// Filter narrows the posts returned by All. Zero values match everything.
type Filter struct {
	Category string
	Account  string
	Since    time.Time
}

// Matches reports whether the post passes the filter.
func (f Filter) Matches(p models.Post) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Account != "" && p.Account != f.Account {
		return false
	}
	if !f.Since.IsZero() && p.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// Store is the contract for post cache backends.
type Store interface {
	// Has is a cheap existence check used to short-circuit re-processing.
	Has(id string) bool

	// UpsertRaw inserts a new post, stamping its immutable raw fields. If
	// the id already exists the call is a no-op and returns false; cached
	// raw fields are never overwritten.
	UpsertRaw(post models.Post) (bool, error)

	// UpdateDerived rewrites only the derived fields of an existing post
	// and stamps it with the store's current version. Returns ErrNotFound
	// for unknown ids.
	UpdateDerived(id, category string, score float64, signals []string) error

	// All returns a consistent snapshot of cached posts matching the
	// filter, sorted by id. The slice is a copy and safe to re-iterate.
	All(filter Filter) ([]models.Post, error)

	// Version is the current lexicon/ruleset version stamp. Entries whose
	// CacheVersion differs need re-scoring, not re-fetching.
	Version() int

	Close() error
}

func sortPostsByID(posts []models.Post) {
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
}
