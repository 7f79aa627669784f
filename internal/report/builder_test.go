package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/finpulse/finpulse-bot/internal/analysis"
	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPost(id, category string, likes int, score float64) models.Post {
	return models.Post{
		ID:             id,
		Account:        "a",
		Category:       category,
		CreatedAt:      time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC),
		LikeCount:      likes,
		SentimentScore: &score,
	}
}

func TestBuild_AssemblesCategoriesAndOverall(t *testing.T) {
	posts := []models.Post{
		buildPost("p1", "crypto", 10, 0.5),
		buildPost("p2", "crypto", 30, -0.1),
		buildPost("p3", "markets", 5, 0.9),
	}

	data := NewBuilder(4).Build(posts, posts[:1])

	assert.Equal(t, 4, data.LexiconVersion)
	assert.Equal(t, 3, data.TotalPosts)
	require.Contains(t, data.Categories, "crypto")
	require.Contains(t, data.Categories, "markets")
	assert.Equal(t, 2, data.Categories["crypto"].PostCount)
	assert.Equal(t, analysis.OverallCategory, data.Overall.Category)
	assert.Equal(t, 3, data.Overall.PostCount)
	require.Len(t, data.NewPosts, 1)
	assert.Equal(t, "p1", data.NewPosts[0].ID)
	assert.False(t, data.GeneratedAt.IsZero())
}

func TestBuild_CategoryCountsSumToTotal(t *testing.T) {
	posts := []models.Post{
		buildPost("p1", "crypto", 1, 0.1),
		buildPost("p2", "markets", 1, 0.2),
		buildPost("p3", "general", 1, 0.0),
		buildPost("p4", "general", 1, -0.3),
	}

	data := NewBuilder(1).Build(posts, nil)

	sum := 0
	for _, stats := range data.Categories {
		sum += stats.PostCount
	}
	assert.Equal(t, data.TotalPosts, sum)
}

func TestBuild_NewPostsSortedNewestFirst(t *testing.T) {
	older := buildPost("p1", "crypto", 1, 0.1)
	older.CreatedAt = time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	newer := buildPost("p2", "crypto", 1, 0.1)

	data := NewBuilder(1).Build([]models.Post{older, newer}, []models.Post{older, newer})

	require.Len(t, data.NewPosts, 2)
	assert.Equal(t, "p2", data.NewPosts[0].ID)
	assert.Equal(t, "p1", data.NewPosts[1].ID)
}

func TestBuild_OutputIsSerializable(t *testing.T) {
	data := NewBuilder(1).Build([]models.Post{buildPost("p1", "crypto", 3, 0.2)}, nil)

	raw, err := json.Marshal(data)
	require.NoError(t, err)

	var roundTrip models.ReportData
	require.NoError(t, json.Unmarshal(raw, &roundTrip))
	assert.Equal(t, data.TotalPosts, roundTrip.TotalPosts)
	assert.Equal(t, data.Categories["crypto"].PostCount, roundTrip.Categories["crypto"].PostCount)
}
