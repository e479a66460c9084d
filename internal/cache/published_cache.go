package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"wellness-sessions/internal/model"
)

const publishedKey = "wellness:sessions:published"

// PublishedCache holds the public listing. Writers invalidate it; readers
// repopulate it on a miss.
type PublishedCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewPublishedCache(client *redisv9.Client, ttl time.Duration) *PublishedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PublishedCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *PublishedCache) GetPublished(ctx context.Context) ([]model.PublicSession, bool, error) {
	raw, err := c.client.Get(ctx, publishedKey).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get published sessions failed: %w", err)
	}

	var sessions []model.PublicSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached published sessions failed: %w", err)
	}
	return sessions, true, nil
}

func (c *PublishedCache) SetPublished(ctx context.Context, sessions []model.PublicSession) error {
	if sessions == nil {
		sessions = []model.PublicSession{}
	}
	payload, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal published sessions failed: %w", err)
	}
	if err := c.client.Set(ctx, publishedKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set published sessions failed: %w", err)
	}
	return nil
}

func (c *PublishedCache) InvalidatePublished(ctx context.Context) error {
	if err := c.client.Del(ctx, publishedKey).Err(); err != nil {
		return fmt.Errorf("redis delete published sessions failed: %w", err)
	}
	return nil
}
