package analysis

import (
	"sort"

	"github.com/finpulse/finpulse-bot/internal/models"
)

// OverallCategory labels the cross-category aggregate.
const OverallCategory = "overall"

// Aggregate computes the stats for one set of posts. Mean sentiment is
// engagement-weighted; a post with zero engagement still contributes with
// weight 1 so silent posts are not divided out. The top post is the highest
// raw engagement, ties broken by most recent CreatedAt, then lowest ID.
// Input order never affects the result.
func Aggregate(category string, posts []models.Post) models.CategoryStats {
	stats := models.CategoryStats{
		Category:     category,
		PostCount:    len(posts),
		SignalCounts: make(map[string]int),
	}

	if len(posts) == 0 {
		return stats
	}

	sorted := append([]models.Post(nil), posts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var weightedSum, weightTotal float64
	var top models.Post
	hasTop := false

	for _, post := range sorted {
		engagement := post.EngagementWeight()
		stats.TotalEngagement += engagement

		weight := float64(engagement)
		if weight < 1 {
			weight = 1
		}

		score := 0.0
		if post.SentimentScore != nil {
			score = *post.SentimentScore
		}
		weightedSum += weight * score
		weightTotal += weight

		for _, signal := range post.Signals {
			stats.SignalCounts[signal]++
		}

		if !hasTop || beats(post, top) {
			top = post
			hasTop = true
		}
	}

	stats.MeanSentiment = weightedSum / weightTotal
	topCopy := top
	stats.TopPost = &topCopy

	return stats
}

// AggregateByCategory partitions posts by category and aggregates each
// partition.
func AggregateByCategory(posts []models.Post) map[string]models.CategoryStats {
	byCategory := make(map[string][]models.Post)
	for _, post := range posts {
		byCategory[post.Category] = append(byCategory[post.Category], post)
	}

	out := make(map[string]models.CategoryStats, len(byCategory))
	for category, group := range byCategory {
		out[category] = Aggregate(category, group)
	}

	return out
}

// beats reports whether a should replace b as the top post.
func beats(a, b models.Post) bool {
	ea, eb := a.EngagementWeight(), b.EngagementWeight()
	if ea != eb {
		return ea > eb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
