package bus

import (
	"context"
	"sync"
	"time"
)

// MemoryBroker is a single-process broker used by tests. Consumers keep the
// same at-least-once contract as the kafka implementation: fetching does not
// commit, and Rewind replays everything after the last committed offset.
type MemoryBroker struct {
	mu          sync.Mutex
	topics      map[string][]*Message
	produceFail error
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string][]*Message)}
}

func (b *MemoryBroker) Produce(ctx context.Context, topic, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.produceFail != nil {
		return b.produceFail
	}
	b.topics[topic] = append(b.topics[topic], &Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	return nil
}

func (b *MemoryBroker) Close() {}

// FailProduceWith makes every following Produce return err; pass nil to heal.
func (b *MemoryBroker) FailProduceWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.produceFail = err
}

// Messages returns a snapshot of everything produced to a topic.
func (b *MemoryBroker) Messages(topic string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Message, len(b.topics[topic]))
	copy(out, b.topics[topic])
	return out
}

// Consumer returns a manually-committed reader over one topic.
func (b *MemoryBroker) Consumer(topic string) *MemoryConsumer {
	return &MemoryConsumer{broker: b, topic: topic}
}

type MemoryConsumer struct {
	broker    *MemoryBroker
	topic     string
	next      int
	committed int
}

func (c *MemoryConsumer) Fetch(timeout time.Duration) (*Message, error) {
	c.broker.mu.Lock()
	msgs := c.broker.topics[c.topic]
	if c.next >= len(msgs) {
		c.broker.mu.Unlock()
		time.Sleep(timeout)
		return nil, nil
	}
	src := msgs[c.next]
	msg := &Message{Topic: src.Topic, Key: src.Key, Value: src.Value, raw: c.next}
	c.next++
	c.broker.mu.Unlock()
	return msg, nil
}

func (c *MemoryConsumer) Commit(msg *Message) error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if off, ok := msg.raw.(int); ok && off+1 > c.committed {
		c.committed = off + 1
	}
	return nil
}

// Committed returns the number of records whose offsets have been committed.
func (c *MemoryConsumer) Committed() int {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	return c.committed
}

// Rewind moves the read position back to the last committed offset, the way
// a consumer-group restart replays uncommitted records.
func (c *MemoryConsumer) Rewind() {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	c.next = c.committed
}

func (c *MemoryConsumer) Close() error { return nil }
