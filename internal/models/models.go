package models

import "time"

// Post is a single item fetched from the feed API. The raw fields (ID,
// Account, Text, CreatedAt and the engagement counters) are immutable once
// cached; Category, SentimentScore, Signals and CacheVersion are derived and
// may be recomputed on every analysis run.
type Post struct {
	ID          string    `json:"id"`
	Account     string    `json:"account"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
	LikeCount   int       `json:"like_count"`
	RepostCount int       `json:"repost_count"`
	ReplyCount  int       `json:"reply_count"`
	FetchedAt   time.Time `json:"fetched_at"`

	Category       string   `json:"category,omitempty"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	Signals        []string `json:"signals,omitempty"`
	CacheVersion   int      `json:"cache_version,omitempty"`
}

// EngagementWeight measures a post's social traction. Reposts count double,
// replies once.
func (p Post) EngagementWeight() int {
	return p.LikeCount + 2*p.RepostCount + p.ReplyCount
}

// Scored reports whether the post has been through sentiment analysis.
func (p Post) Scored() bool {
	return p.SentimentScore != nil
}

// RawEqual compares only the immutable fields of two posts.
func (p Post) RawEqual(other Post) bool {
	return p.ID == other.ID &&
		p.Account == other.Account &&
		p.Text == other.Text &&
		p.CreatedAt.Equal(other.CreatedAt) &&
		p.LikeCount == other.LikeCount &&
		p.RepostCount == other.RepostCount &&
		p.ReplyCount == other.ReplyCount
}

// Account is a tracked handle. Read-only to the pipeline, defined by
// configuration.
type Account struct {
	Handle          string `json:"handle"`
	PriorityTier    string `json:"priority_tier"` // "high", "medium" or "low"
	DefaultCategory string `json:"default_category"`
}

// CollectionResult summarizes one collector run. Counts are exact even when
// some accounts failed.
type CollectionResult struct {
	FetchedCount   int      `json:"fetched_count"`
	NewCount       int      `json:"new_count"`
	SkippedCount   int      `json:"skipped_count"`
	FailedAccounts []string `json:"failed_accounts,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

// CategoryStats is the per-run aggregate for one category. Recomputed fully
// each run, never updated incrementally.
type CategoryStats struct {
	Category        string         `json:"category"`
	PostCount       int            `json:"post_count"`
	TotalEngagement int            `json:"total_engagement"`
	MeanSentiment   float64        `json:"mean_sentiment"`
	TopPost         *Post          `json:"top_post,omitempty"`
	SignalCounts    map[string]int `json:"signal_counts,omitempty"`
}

// ReportData is the stable record handed to report/dashboard consumers.
type ReportData struct {
	GeneratedAt    time.Time                `json:"generated_at"`
	LexiconVersion int                      `json:"lexicon_version"`
	TotalPosts     int                      `json:"total_posts"`
	Categories     map[string]CategoryStats `json:"categories"`
	Overall        CategoryStats            `json:"overall"`
	NewPosts       []Post                   `json:"new_posts,omitempty"`
	Narrative      string                   `json:"narrative,omitempty"`
}
