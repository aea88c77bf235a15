package matchmaker

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"matchmaking/internal/bus"
	"matchmaking/monitoring"
)

// Ingestor consumes match requests and feeds the waiting queue. Its offset is
// committed only after the enqueue succeeds; if the store is down the record
// is replayed on the next consumer-group start. The queue has no uniqueness
// constraint, so a replayed enqueue at worst duplicates an entry.
type Ingestor struct {
	consumer bus.Consumer
	queue    *WaitingQueue
	former   *Former
	cfg      LoopConfig
	log      *log.Logger
}

func NewIngestor(consumer bus.Consumer, queue *WaitingQueue, former *Former, cfg LoopConfig, logger *log.Logger) *Ingestor {
	return &Ingestor{
		consumer: consumer,
		queue:    queue,
		former:   former,
		cfg:      cfg,
		log:      logger,
	}
}

// Run polls until the context is cancelled. Infra failures back off and
// continue; only cancellation and a queue invariant violation end the loop.
func (in *Ingestor) Run(ctx context.Context) error {
	in.log.Info("ingestor started", "playersPerMatch", in.former.size)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := in.consumer.Fetch(in.cfg.PollTimeout)
		if err != nil {
			monitoring.RecordConsumeError("request")
			if errors.Is(err, bus.ErrUnknownTopic) {
				in.log.Warn("request topic not yet available, retrying", "err", err)
				sleep(ctx, in.cfg.TopicBackoff)
			} else {
				in.log.Error("consume failed", "err", err)
				sleep(ctx, in.cfg.ConsumeBackoff)
			}
			continue
		}
		if msg == nil {
			continue
		}

		userID := string(msg.Value)
		if userID == "" {
			if err := in.consumer.Commit(msg); err != nil {
				in.log.Error("offset commit failed", "err", err)
			}
			continue
		}

		if err := in.queue.Push(ctx, userID); err != nil {
			in.log.Error("enqueue failed, offset withheld", "user", userID, "err", err)
			sleep(ctx, in.cfg.ConsumeBackoff)
			continue
		}
		if err := in.consumer.Commit(msg); err != nil {
			in.log.Error("offset commit failed", "user", userID, "err", err)
		}

		if _, err := in.former.TryForm(ctx); err != nil {
			if errors.Is(err, ErrShortClaim) {
				in.log.Error("queue invariant violated, stopping", "err", err)
				return err
			}
			in.log.Error("match formation failed", "err", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
