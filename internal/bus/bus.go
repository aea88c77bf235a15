// Package bus abstracts the event streams carrying matchmaking traffic so
// the consume loops can run against a real broker in production and an
// in-memory one in tests.
package bus

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownTopic reports that the broker has not provisioned the topic yet.
// Consumers back off longer on this than on generic consume errors.
var ErrUnknownTopic = errors.New("bus: unknown topic or partition")

// Message is one record fetched from a stream. Offsets are committed
// explicitly through Consumer.Commit, never on fetch.
type Message struct {
	Topic string
	Key   []byte
	Value []byte

	raw any // broker-native handle needed by Commit
}

// Consumer is a manually-committed stream reader. Fetch returns (nil, nil)
// when the poll timeout elapses without a record.
type Consumer interface {
	Fetch(timeout time.Duration) (*Message, error)
	Commit(msg *Message) error
	Close() error
}

type Producer interface {
	Produce(ctx context.Context, topic, key string, value []byte) error
	Close()
}
