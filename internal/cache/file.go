package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// FileStore persists posts as one JSON document per account under a cache
// directory. Writes go through a temp file plus rename, so a reader never
// sees a half-written document and an interrupted run leaves the cache
// valid. One writer process per account is assumed.
type FileStore struct {
	dir     string
	version int

	mu    sync.RWMutex
	posts map[string]models.Post // id -> post
}

var _ Store = (*FileStore)(nil)

type accountDocument struct {
	Account     string        `json:"account"`
	LastUpdated time.Time     `json:"last_updated"`
	TotalPosts  int           `json:"total_posts"`
	Posts       []models.Post `json:"posts"`
}

// NewFileStore opens (or creates) a file-backed cache rooted at dir, loading
// every account document into the in-memory id index.
func NewFileStore(dir string, version int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	store := &FileStore{
		dir:     dir,
		version: version,
		posts:   make(map[string]models.Post),
	}

	if err := store.loadAll(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *FileStore) loadAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory %s: %w", s.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_posts.json") {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read cache file %s: %w", path, err)
		}

		var doc accountDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse cache file %s: %w", path, err)
		}

		for _, post := range doc.Posts {
			s.posts[post.ID] = post
		}
	}

	logrus.Debugf("Loaded %d cached posts from %s", len(s.posts), s.dir)
	return nil
}

func (s *FileStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.posts[id]
	return ok
}

func (s *FileStore) UpsertRaw(post models.Post) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.posts[post.ID]; ok {
		if !existing.RawEqual(post) {
			logrus.Warnf("Ignoring raw-field change for cached post %s", post.ID)
		}
		return false, nil
	}

	s.posts[post.ID] = post
	if err := s.flushAccount(post.Account); err != nil {
		delete(s.posts, post.ID)
		return false, err
	}

	return true, nil
}

func (s *FileStore) UpdateDerived(id, category string, score float64, signals []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return fmt.Errorf("update derived fields for %s: %w", id, ErrNotFound)
	}

	post.Category = category
	post.SentimentScore = &score
	post.Signals = append([]string(nil), signals...)
	post.CacheVersion = s.version
	s.posts[id] = post

	return s.flushAccount(post.Account)
}

func (s *FileStore) All(filter Filter) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Post
	for _, post := range s.posts {
		if filter.Matches(post) {
			out = append(out, post)
		}
	}

	sortPostsByID(out)
	return out, nil
}

func (s *FileStore) Version() int {
	return s.version
}

func (s *FileStore) Close() error {
	return nil
}

// Size returns the number of cached posts.
func (s *FileStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.posts)
}

// flushAccount rewrites the account's document atomically. Callers hold the
// write lock.
func (s *FileStore) flushAccount(account string) error {
	doc := accountDocument{
		Account:     account,
		LastUpdated: time.Now().UTC(),
	}

	for _, post := range s.posts {
		if post.Account == account {
			doc.Posts = append(doc.Posts, post)
		}
	}
	sort.Slice(doc.Posts, func(i, j int) bool {
		return doc.Posts[i].CreatedAt.After(doc.Posts[j].CreatedAt)
	})
	doc.TotalPosts = len(doc.Posts)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache document for @%s: %w", account, err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_posts.json", sanitizeHandle(account)))
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file for @%s: %w", account, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit cache file for @%s: %w", account, err)
	}

	return nil
}

func sanitizeHandle(handle string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, handle)
}
