package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/finpulse/finpulse-bot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const maxAttempts = 3

// Client talks to the feed API. Every physical request goes through the
// shared RateLimiter first.
type Client struct {
	baseURL     string
	apiKey      string
	limiter     *RateLimiter
	client      *resty.Client
	backoffBase time.Duration
}

type timelineResponse struct {
	Data []timelinePost `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type timelinePost struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount   int `json:"like_count"`
		RepostCount int `json:"retweet_count"`
		ReplyCount  int `json:"reply_count"`
	} `json:"public_metrics"`
}

// NewClient creates a feed API client.
func NewClient(baseURL, apiKey string, limiter *RateLimiter) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: limiter,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "FinPulse-Bot/1.0"),
		backoffBase: time.Second,
	}
}

// SetBackoffBase overrides the base delay used for transient-error retries.
// Tests set this to something tiny.
func (c *Client) SetBackoffBase(d time.Duration) {
	c.backoffBase = d
}

// FetchRecent returns the account's posts published after since. The API's
// ordering is not trusted; callers must treat the slice as unordered.
func (c *Client) FetchRecent(ctx context.Context, handle string, since time.Time) ([]models.Post, error) {
	requestURL := fmt.Sprintf("%s/2/timeline?handle=%s&start_time=%s&max_results=100",
		c.baseURL, url.QueryEscape(handle), url.QueryEscape(since.UTC().Format(time.RFC3339)))

	var lastErr error
	rateLimited := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, &TransientError{Account: handle, Err: err}
		}

		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+c.apiKey).
			Get(requestURL)

		switch {
		case err != nil:
			rateLimited = false
			lastErr = err
			logrus.Warnf("Feed request for @%s failed (attempt %d/%d): %v", handle, attempt, maxAttempts, err)
			if !c.sleep(ctx, c.backoffBase<<(attempt-1)) {
				return nil, &TransientError{Account: handle, Err: ctx.Err()}
			}
			continue

		case resp.StatusCode() == 429:
			rateLimited = true
			lastErr = fmt.Errorf("status 429")
			logrus.Warnf("Feed API rate limited @%s (attempt %d/%d), backing off one full interval", handle, attempt, maxAttempts)
			if !c.sleep(ctx, c.limiter.Interval()) {
				return nil, &RateLimitError{Account: handle, Attempts: attempt}
			}
			continue

		case resp.StatusCode() >= 500:
			rateLimited = false
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode(), string(resp.Body()))
			logrus.Warnf("Feed API error for @%s (attempt %d/%d): %v", handle, attempt, maxAttempts, lastErr)
			if !c.sleep(ctx, c.backoffBase<<(attempt-1)) {
				return nil, &TransientError{Account: handle, Err: ctx.Err()}
			}
			continue

		case resp.StatusCode() != 200:
			return nil, &PermanentError{Account: handle, Status: resp.StatusCode(), Body: string(resp.Body())}
		}

		return c.parseTimeline(handle, resp.Body())
	}

	if rateLimited {
		return nil, &RateLimitError{Account: handle, Attempts: maxAttempts}
	}
	return nil, &TransientError{Account: handle, Err: lastErr}
}

func (c *Client) parseTimeline(handle string, body []byte) ([]models.Post, error) {
	var timeline timelineResponse
	if err := json.Unmarshal(body, &timeline); err != nil {
		return nil, &TransientError{Account: handle, Err: fmt.Errorf("failed to parse feed response: %w", err)}
	}

	posts := make([]models.Post, 0, len(timeline.Data))
	for _, item := range timeline.Data {
		createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
		if err != nil {
			logrus.Errorf("Failed to parse feed timestamp %q for @%s: %v", item.CreatedAt, handle, err)
			continue
		}

		posts = append(posts, models.Post{
			ID:          item.ID,
			Account:     handle,
			Text:        item.Text,
			CreatedAt:   createdAt,
			LikeCount:   item.PublicMetrics.LikeCount,
			RepostCount: item.PublicMetrics.RepostCount,
			ReplyCount:  item.PublicMetrics.ReplyCount,
		})
	}

	logrus.Debugf("Feed API returned %d posts for @%s", len(posts), handle)
	return posts, nil
}

// sleep waits for d, returning false if the context was cancelled first.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
