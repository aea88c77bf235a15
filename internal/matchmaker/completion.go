package matchmaker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/charmbracelet/log"

	"matchmaking/internal/bus"
	"matchmaking/monitoring"
)

// Completion consumes match-complete events and materializes a per-user
// match record for every participant. The offset moves only after all writes
// succeed; a partial write withholds it and the whole event is replayed,
// which is safe because the writes are idempotent.
//
// Malformed payloads are logged and skipped with their offset committed:
// redelivery cannot fix a decode error, only infra errors earn a retry.
type Completion struct {
	consumer bus.Consumer
	cache    *MatchCache
	cfg      LoopConfig
	log      *log.Logger
}

func NewCompletion(consumer bus.Consumer, cache *MatchCache, cfg LoopConfig, logger *log.Logger) *Completion {
	return &Completion{
		consumer: consumer,
		cache:    cache,
		cfg:      cfg,
		log:      logger,
	}
}

// Run polls until the context is cancelled.
func (p *Completion) Run(ctx context.Context) error {
	p.log.Info("completion processor started")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := p.consumer.Fetch(p.cfg.PollTimeout)
		if err != nil {
			monitoring.RecordConsumeError("complete")
			if errors.Is(err, bus.ErrUnknownTopic) {
				p.log.Warn("complete topic not yet available, retrying", "err", err)
				sleep(ctx, p.cfg.TopicBackoff)
			} else {
				p.log.Error("consume failed", "err", err)
				sleep(ctx, p.cfg.ConsumeBackoff)
			}
			continue
		}
		if msg == nil {
			continue
		}

		var match Match
		if err := json.Unmarshal(msg.Value, &match); err != nil || match.MatchID == "" {
			p.log.Warn("dropping malformed match-complete event", "err", err)
			if err := p.consumer.Commit(msg); err != nil {
				p.log.Error("offset commit failed", "err", err)
			}
			continue
		}

		if err := p.cache.Save(ctx, &match); err != nil {
			p.log.Error("cache write failed, offset withheld", "match", match.MatchID, "err", err)
			sleep(ctx, p.cfg.ConsumeBackoff)
			continue
		}
		if err := p.consumer.Commit(msg); err != nil {
			p.log.Error("offset commit failed", "match", match.MatchID, "err", err)
		}
		p.log.Info("match cached", "match", match.MatchID, "users", match.UserIDs)
	}
}
