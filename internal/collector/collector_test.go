package collector

import (
	"context"
	"testing"
	"time"

	"github.com/finpulse/finpulse-bot/internal/cache"
	"github.com/finpulse/finpulse-bot/internal/feed"
	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned posts or errors per handle.
type fakeSource struct {
	posts map[string][]models.Post
	errs  map[string]error
	calls []string
}

func (f *fakeSource) FetchRecent(ctx context.Context, handle string, since time.Time) ([]models.Post, error) {
	f.calls = append(f.calls, handle)
	if err, ok := f.errs[handle]; ok {
		return nil, err
	}
	return f.posts[handle], nil
}

func post(id, account string) models.Post {
	return models.Post{
		ID:        id,
		Account:   account,
		Text:      "some market take",
		CreatedAt: time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC),
	}
}

func newStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir(), 1)
	require.NoError(t, err)
	return store
}

func accounts(handles ...string) []models.Account {
	var out []models.Account
	for _, h := range handles {
		out = append(out, models.Account{Handle: h, PriorityTier: "medium"})
	}
	return out
}

func TestCollect_CountsNewAndSkipped(t *testing.T) {
	store := newStore(t)
	source := &fakeSource{posts: map[string][]models.Post{
		"alice": {post("a1", "alice"), post("a2", "alice")},
		"bob":   {post("b1", "bob")},
	}}

	c := New(source, store)
	result := c.Collect(context.Background(), accounts("alice", "bob"), 24*time.Hour)

	assert.Equal(t, 3, result.FetchedCount)
	assert.Equal(t, 3, result.NewCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.FailedAccounts)
}

func TestCollect_SecondRunIsIdempotent(t *testing.T) {
	store := newStore(t)
	source := &fakeSource{posts: map[string][]models.Post{
		"alice": {post("a1", "alice"), post("a2", "alice")},
	}}

	c := New(source, store)
	first := c.Collect(context.Background(), accounts("alice"), 24*time.Hour)
	assert.Equal(t, 2, first.NewCount)

	second := c.Collect(context.Background(), accounts("alice"), 24*time.Hour)
	assert.Equal(t, 0, second.NewCount)
	assert.Equal(t, 2, second.SkippedCount)
	assert.Equal(t, 2, second.FetchedCount)

	posts, err := store.All(cache.Filter{})
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestCollect_StampsFetchedAt(t *testing.T) {
	store := newStore(t)
	source := &fakeSource{posts: map[string][]models.Post{
		"alice": {post("a1", "alice")},
	}}

	c := New(source, store)
	before := time.Now()
	c.Collect(context.Background(), accounts("alice"), time.Hour)

	posts, err := store.All(cache.Filter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.False(t, posts[0].FetchedAt.Before(before.Add(-time.Second)))
}

func TestCollect_PermanentFailureIsolatedToAccount(t *testing.T) {
	store := newStore(t)
	source := &fakeSource{
		posts: map[string][]models.Post{
			"bob":   {post("b1", "bob")},
			"carol": {post("c1", "carol"), post("c2", "carol")},
		},
		errs: map[string]error{
			"alice": &feed.PermanentError{Account: "alice", Status: 404},
		},
	}

	c := New(source, store)
	result := c.Collect(context.Background(), accounts("alice", "bob", "carol"), 24*time.Hour)

	assert.Equal(t, 3, result.FetchedCount)
	assert.Equal(t, 3, result.NewCount)
	assert.Equal(t, []string{"alice"}, result.FailedAccounts)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "alice")

	// All accounts after the failing one were still visited.
	assert.Equal(t, []string{"alice", "bob", "carol"}, source.calls)
}

func TestCollect_TransientAndRateLimitFailuresRecorded(t *testing.T) {
	store := newStore(t)
	source := &fakeSource{
		posts: map[string][]models.Post{
			"carol": {post("c1", "carol")},
		},
		errs: map[string]error{
			"alice": &feed.RateLimitError{Account: "alice", Attempts: 3},
			"bob":   &feed.TransientError{Account: "bob", Err: context.DeadlineExceeded},
		},
	}

	c := New(source, store)
	result := c.Collect(context.Background(), accounts("alice", "bob", "carol"), 24*time.Hour)

	assert.Equal(t, 1, result.NewCount)
	assert.ElementsMatch(t, []string{"alice", "bob"}, result.FailedAccounts)
	assert.Len(t, result.Errors, 2)
}
