// Package report assembles the run's aggregates into the stable record
// consumed by external report and dashboard layers. Nothing in here renders
// Markdown or HTML.
package report

import (
	"sort"
	"time"

	"github.com/finpulse/finpulse-bot/internal/analysis"
	"github.com/finpulse/finpulse-bot/internal/models"
)

// Builder turns a scored post set into a ReportData record.
type Builder struct {
	lexiconVersion int
	now            func() time.Time
}

// NewBuilder creates a builder stamping reports with the given lexicon
// version.
func NewBuilder(lexiconVersion int) *Builder {
	return &Builder{lexiconVersion: lexiconVersion, now: time.Now}
}

// Build aggregates posts per category and overall. newPosts are the posts
// first seen during this run, passed through for downstream consumers.
func (b *Builder) Build(posts, newPosts []models.Post) models.ReportData {
	sortedNew := append([]models.Post(nil), newPosts...)
	sort.Slice(sortedNew, func(i, j int) bool {
		if !sortedNew[i].CreatedAt.Equal(sortedNew[j].CreatedAt) {
			return sortedNew[i].CreatedAt.After(sortedNew[j].CreatedAt)
		}
		return sortedNew[i].ID < sortedNew[j].ID
	})

	return models.ReportData{
		GeneratedAt:    b.now().UTC(),
		LexiconVersion: b.lexiconVersion,
		TotalPosts:     len(posts),
		Categories:     analysis.AggregateByCategory(posts),
		Overall:        analysis.Aggregate(analysis.OverallCategory, posts),
		NewPosts:       sortedNew,
	}
}
