package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	postKeyPrefix = "finpulse:post:"
	postIndexKey  = "finpulse:posts"
)

// RedisStore is a server-backed cache for deployments that already run
// Redis. Same single-writer-per-account assumption as the file store.
type RedisStore struct {
	client  *redis.Client
	version int
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(redisURL string, version int) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opt.Addr, err)
	}

	return &RedisStore{client: client, version: version}, nil
}

func (s *RedisStore) Has(id string) bool {
	n, err := s.client.Exists(context.Background(), postKeyPrefix+id).Result()
	if err != nil {
		logrus.Errorf("Redis existence check for %s failed: %v", id, err)
		return false
	}
	return n > 0
}

func (s *RedisStore) UpsertRaw(post models.Post) (bool, error) {
	ctx := context.Background()

	data, err := json.Marshal(post)
	if err != nil {
		return false, fmt.Errorf("failed to marshal post %s: %w", post.ID, err)
	}

	// SETNX keeps the first write; a re-fetch of a known id is a no-op and
	// never clobbers raw fields.
	inserted, err := s.client.SetNX(ctx, postKeyPrefix+post.ID, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store post %s: %w", post.ID, err)
	}
	if !inserted {
		return false, nil
	}

	if err := s.client.SAdd(ctx, postIndexKey, post.ID).Err(); err != nil {
		return false, fmt.Errorf("failed to index post %s: %w", post.ID, err)
	}

	return true, nil
}

func (s *RedisStore) UpdateDerived(id, category string, score float64, signals []string) error {
	ctx := context.Background()

	data, err := s.client.Get(ctx, postKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("update derived fields for %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load post %s: %w", id, err)
	}

	var post models.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return fmt.Errorf("failed to parse cached post %s: %w", id, err)
	}

	post.Category = category
	post.SentimentScore = &score
	post.Signals = append([]string(nil), signals...)
	post.CacheVersion = s.version

	updated, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal post %s: %w", id, err)
	}

	return s.client.Set(ctx, postKeyPrefix+id, updated, 0).Err()
}

func (s *RedisStore) All(filter Filter) ([]models.Post, error) {
	ctx := context.Background()

	ids, err := s.client.SMembers(ctx, postIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list cached posts: %w", err)
	}

	var out []models.Post
	for _, id := range ids {
		data, err := s.client.Get(ctx, postKeyPrefix+id).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load post %s: %w", id, err)
		}

		var post models.Post
		if err := json.Unmarshal(data, &post); err != nil {
			return nil, fmt.Errorf("failed to parse cached post %s: %w", id, err)
		}

		if filter.Matches(post) {
			out = append(out, post)
		}
	}

	sortPostsByID(out)
	return out, nil
}

func (s *RedisStore) Version() int {
	return s.version
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
