package matchmaker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"matchmaking/internal/bus"
	"matchmaking/monitoring"
)

// Former claims full batches from the waiting queue and publishes them as
// completed matches. Any number of Former instances may race on the same
// queue; the claim transaction guarantees a batch is formed at most once.
type Former struct {
	queue    *WaitingQueue
	producer bus.Producer
	topic    string
	size     int
	log      *log.Logger
}

func NewFormer(queue *WaitingQueue, producer bus.Producer, topic string, playersPerMatch int, logger *log.Logger) *Former {
	return &Former{
		queue:    queue,
		producer: producer,
		topic:    topic,
		size:     playersPerMatch,
		log:      logger,
	}
}

// TryForm runs one formation attempt: check length, claim a batch, publish
// the match. It returns the formed match, or nil when the queue is short or
// another instance won the claim. A publish failure pushes the claimed users
// back to the queue front before the error is returned.
func (f *Former) TryForm(ctx context.Context) (*Match, error) {
	size, err := f.queue.Len(ctx)
	if err != nil {
		return nil, err
	}
	if size < int64(f.size) {
		return nil, nil
	}

	users, err := f.queue.Claim(ctx, f.size)
	if err != nil {
		return nil, err
	}
	if users == nil {
		return nil, nil
	}

	match := &Match{MatchID: uuid.NewString(), UserIDs: users}
	payload, err := json.Marshal(match)
	if err != nil {
		return nil, err
	}

	if err := f.producer.Produce(ctx, f.topic, match.MatchID, payload); err != nil {
		f.log.Error("publish failed, requeueing claimed users", "match", match.MatchID, "err", err)
		if reqErr := f.queue.Requeue(ctx, users); reqErr != nil {
			return nil, fmt.Errorf("publish failed (%v), requeue failed: %w", err, reqErr)
		}
		monitoring.RecordRequeue(len(users))
		return nil, fmt.Errorf("publish match %s: %w", match.MatchID, err)
	}

	monitoring.RecordMatchFormed()
	f.log.Info("match formed", "match", match.MatchID, "users", users)
	return match, nil
}
