package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ThrottledError reports that a user re-requested inside the minimum
// interval. RetryAfter is how long they still have to wait.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %dms", e.RetryAfter.Milliseconds())
}

// RateLimiter throttles match requests per user through a shared Redis entry
// holding the last accepted request time in unix millis.
//
// Known limitation: the check and the write are two round trips, not one
// atomic operation, so two truly concurrent requests for the same user can
// both be admitted inside one window. The bus tolerates the slight
// over-admission.
type RateLimiter struct {
	rdb         *redis.Client
	minInterval time.Duration
	entryTTL    time.Duration
	now         func() time.Time // overridden in tests
}

func NewRateLimiter(rdb *redis.Client, minInterval, entryTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:         rdb,
		minInterval: minInterval,
		entryTTL:    entryTTL,
		now:         time.Now,
	}
}

func rateLimitKey(userID string) string {
	return fmt.Sprintf("ratelimit:%s", userID)
}

// Allow admits the request and records its timestamp, or returns a
// *ThrottledError carrying the remaining wait. The entry expires on its own;
// it is never deleted explicitly.
func (l *RateLimiter) Allow(ctx context.Context, userID string) error {
	now := l.now().UnixMilli()

	last, err := l.rdb.Get(ctx, rateLimitKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if err == nil {
		if lastMs, parseErr := strconv.ParseInt(last, 10, 64); parseErr == nil {
			elapsed := time.Duration(now-lastMs) * time.Millisecond
			if elapsed < l.minInterval {
				return &ThrottledError{RetryAfter: l.minInterval - elapsed}
			}
		}
	}

	return l.rdb.Set(ctx, rateLimitKey(userID), now, l.entryTTL).Err()
}
