package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/finpulse/finpulse-bot/internal/analysis"
	"github.com/finpulse/finpulse-bot/internal/cache"
	"github.com/finpulse/finpulse-bot/internal/config"
	"github.com/finpulse/finpulse-bot/internal/feed"
	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	posts map[string][]models.Post
	errs  map[string]error
}

func (f *fakeFeed) FetchRecent(ctx context.Context, handle string, since time.Time) ([]models.Post, error) {
	if err, ok := f.errs[handle]; ok {
		return nil, err
	}
	return f.posts[handle], nil
}

func feedPost(id, account, text string, likes int) models.Post {
	return models.Post{
		ID:        id,
		Account:   account,
		Text:      text,
		CreatedAt: time.Date(2026, 8, 27, 11, 0, 0, 0, time.UTC),
		LikeCount: likes,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		LookbackHours:   24,
		DefaultCategory: "general",
		Accounts: []models.Account{
			{Handle: "cryptokate", PriorityTier: "high", DefaultCategory: "crypto"},
			{Handle: "macromike", PriorityTier: "medium", DefaultCategory: "economy"},
		},
		CategoryOverrides: map[string]string{},
	}
}

func newTestService(t *testing.T, source *fakeFeed, lexicon *analysis.Lexicon) (*Service, cache.Store) {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir(), lexicon.Version())
	require.NoError(t, err)
	return NewService(testConfig(), store, source, lexicon), store
}

func TestPipeline_FullRunScoresAndAggregates(t *testing.T) {
	source := &fakeFeed{posts: map[string][]models.Post{
		"cryptokate": {
			feedPost("c1", "cryptokate", "Bitcoin looks bullish, expecting a breakout", 10),
			feedPost("c2", "cryptokate", "Total crash incoming, sell everything", 50),
		},
		"macromike": {
			feedPost("m1", "macromike", "Nothing to report today", 0),
		},
	}}

	service, store := newTestService(t, source, analysis.DefaultLexicon())
	data, err := service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, data.TotalPosts)
	assert.Len(t, data.NewPosts, 3)

	// Every cached post has exactly one category and a score after the run.
	posts, err := store.All(cache.Filter{})
	require.NoError(t, err)
	for _, post := range posts {
		assert.NotEmpty(t, post.Category, "post %s has no category", post.ID)
		assert.True(t, post.Scored(), "post %s has no score", post.ID)
		assert.Equal(t, store.Version(), post.CacheVersion)
	}

	require.Contains(t, data.Categories, "crypto")
	sum := 0
	for _, stats := range data.Categories {
		sum += stats.PostCount
	}
	assert.Equal(t, data.TotalPosts, sum)
}

func TestPipeline_SecondCollectionIsIdempotent(t *testing.T) {
	source := &fakeFeed{posts: map[string][]models.Post{
		"cryptokate": {feedPost("c1", "cryptokate", "bullish", 1)},
	}}

	service, _ := newTestService(t, source, analysis.DefaultLexicon())

	first, err := service.RunCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.NewCount)

	second, err := service.RunCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewCount)
	assert.Equal(t, 1, second.SkippedCount)
}

func TestPipeline_PartialFailureStillCollectsOtherAccounts(t *testing.T) {
	source := &fakeFeed{
		posts: map[string][]models.Post{
			"macromike": {feedPost("m1", "macromike", "inflation data due", 2)},
		},
		errs: map[string]error{
			"cryptokate": &feed.PermanentError{Account: "cryptokate", Status: 404},
		},
	}

	service, _ := newTestService(t, source, analysis.DefaultLexicon())
	result, err := service.RunCollection(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewCount)
	assert.Equal(t, []string{"cryptokate"}, result.FailedAccounts)
	require.Len(t, result.Errors, 1)
}

func TestPipeline_AnalysisAloneWorksOnCachedPosts(t *testing.T) {
	lexicon := analysis.DefaultLexicon()
	store, err := cache.NewFileStore(t.TempDir(), lexicon.Version())
	require.NoError(t, err)

	_, err = store.UpsertRaw(feedPost("c1", "cryptokate", "bullish breakout", 5))
	require.NoError(t, err)

	// Analysis must not hit the feed at all.
	service := NewService(testConfig(), store, &fakeFeed{}, lexicon)
	data, err := service.RunAnalysis(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, data.TotalPosts)
	assert.Greater(t, data.Overall.MeanSentiment, 0.0)
}

func TestPipeline_VersionBumpTriggersRescoreWithoutRefetch(t *testing.T) {
	dir := t.TempDir()

	oldLexicon := analysis.NewLexicon(1, 1.0, []analysis.Entry{
		{Term: "bullish", Weight: 0.5, Tags: []string{"bullish"}},
	})
	store, err := cache.NewFileStore(dir, oldLexicon.Version())
	require.NoError(t, err)

	source := &fakeFeed{posts: map[string][]models.Post{
		"cryptokate": {feedPost("c1", "cryptokate", "very bullish", 1)},
	}}
	service := NewService(testConfig(), store, source, oldLexicon)
	_, err = service.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// New lexicon flips the weight; version bump invalidates derived
	// fields on the cached entry.
	newLexicon := analysis.NewLexicon(2, 1.0, []analysis.Entry{
		{Term: "bullish", Weight: -0.5, Tags: []string{"contrarian"}},
	})
	reopened, err := cache.NewFileStore(dir, newLexicon.Version())
	require.NoError(t, err)

	rescoreService := NewService(testConfig(), reopened, &fakeFeed{}, newLexicon)
	data, err := rescoreService.RunAnalysis(context.Background())
	require.NoError(t, err)

	assert.Less(t, data.Overall.MeanSentiment, 0.0)
	assert.Equal(t, 1, data.Overall.SignalCounts["contrarian"])

	posts, err := reopened.All(cache.Filter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 2, posts[0].CacheVersion)
}

func TestPipeline_AnalysisIsIdempotent(t *testing.T) {
	source := &fakeFeed{posts: map[string][]models.Post{
		"cryptokate": {feedPost("c1", "cryptokate", "bullish gains", 4)},
	}}

	service, _ := newTestService(t, source, analysis.DefaultLexicon())
	_, err := service.RunCollection(context.Background())
	require.NoError(t, err)

	first, err := service.RunAnalysis(context.Background())
	require.NoError(t, err)
	second, err := service.RunAnalysis(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Overall.MeanSentiment, second.Overall.MeanSentiment)
	assert.Equal(t, first.TotalPosts, second.TotalPosts)
	// Nothing new fetched between the runs.
	assert.Empty(t, second.NewPosts)
}

func TestPipeline_MetricsExposeRunState(t *testing.T) {
	source := &fakeFeed{posts: map[string][]models.Post{
		"cryptokate": {feedPost("c1", "cryptokate", "bullish", 1)},
	}}

	service, _ := newTestService(t, source, analysis.DefaultLexicon())
	_, err := service.Run(context.Background())
	require.NoError(t, err)

	metrics := service.GetMetrics()
	assert.Contains(t, metrics, `"cached_posts": 1`)
	assert.Contains(t, metrics, `"last_collection_result"`)

	require.NotNil(t, service.LastReport())
}
