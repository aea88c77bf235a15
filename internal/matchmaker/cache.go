package matchmaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MatchCache holds formed matches keyed per participant so clients can poll
// for their result. Records expire after the retention window; an expired
// match simply reads as not found.
type MatchCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewMatchCache(rdb *redis.Client, ttl time.Duration) *MatchCache {
	return &MatchCache{rdb: rdb, ttl: ttl}
}

func matchKey(userID string) string {
	return fmt.Sprintf("match:%s", userID)
}

// Save writes the record under every participant's key. Writes are plain
// SETs, so replaying the same event overwrites the same keys with the same
// values and redelivery is harmless.
func (c *MatchCache) Save(ctx context.Context, m *Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pipe := c.rdb.Pipeline()
	for _, userID := range m.UserIDs {
		pipe.Set(ctx, matchKey(userID), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache match %s: %w", m.MatchID, err)
	}
	return nil
}

// Get returns the cached match for a user, or (nil, nil) when none exists.
func (c *MatchCache) Get(ctx context.Context, userID string) (*Match, error) {
	data, err := c.rdb.Get(ctx, matchKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
