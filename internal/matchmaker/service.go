package matchmaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"matchmaking/internal/bus"
	"matchmaking/monitoring"
)

// Service is the client-facing entry point: throttle, then publish the
// request event; and read back cached results for polling.
type Service struct {
	limiter  *RateLimiter
	cache    *MatchCache
	producer bus.Producer
	topic    string
	log      *log.Logger
}

func NewService(limiter *RateLimiter, cache *MatchCache, producer bus.Producer, requestTopic string, logger *log.Logger) *Service {
	return &Service{
		limiter:  limiter,
		cache:    cache,
		producer: producer,
		topic:    requestTopic,
		log:      logger,
	}
}

// RequestMatch admits the user through the rate limiter and publishes a
// request event keyed by user id. A *ThrottledError is returned as-is so the
// transport layer can surface the remaining wait.
func (s *Service) RequestMatch(ctx context.Context, userID string) error {
	if err := s.limiter.Allow(ctx, userID); err != nil {
		var throttled *ThrottledError
		if errors.As(err, &throttled) {
			monitoring.RecordThrottled()
			s.log.Warn("request throttled", "user", userID, "retryAfter", throttled.RetryAfter)
		}
		return err
	}

	if err := s.producer.Produce(ctx, s.topic, userID, []byte(userID)); err != nil {
		s.log.Error("request publish failed", "user", userID, "err", err)
		return fmt.Errorf("publish match request: %w", err)
	}
	s.log.Info("match request accepted", "user", userID)
	return nil
}

// GetMatchInfo returns the user's cached match, or (nil, nil) when none
// exists or it has expired.
func (s *Service) GetMatchInfo(ctx context.Context, userID string) (*Match, error) {
	return s.cache.Get(ctx, userID)
}
