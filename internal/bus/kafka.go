package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type KafkaConsumer struct {
	c *kafka.Consumer
}

// NewKafkaConsumer joins the given consumer group with auto-commit disabled;
// offsets move only through Commit.
func NewKafkaConsumer(brokers, group, topic string) (*KafkaConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           group,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return &KafkaConsumer{c: c}, nil
}

func (k *KafkaConsumer) Fetch(timeout time.Duration) (*Message, error) {
	msg, err := k.c.ReadMessage(timeout)
	if err != nil {
		var kerr kafka.Error
		if errors.As(err, &kerr) {
			switch kerr.Code() {
			case kafka.ErrTimedOut:
				return nil, nil
			case kafka.ErrUnknownTopicOrPart:
				return nil, fmt.Errorf("%w: %v", ErrUnknownTopic, kerr)
			}
		}
		return nil, err
	}
	return &Message{
		Topic: *msg.TopicPartition.Topic,
		Key:   msg.Key,
		Value: msg.Value,
		raw:   msg,
	}, nil
}

func (k *KafkaConsumer) Commit(msg *Message) error {
	km, ok := msg.raw.(*kafka.Message)
	if !ok {
		return errors.New("bus: message was not fetched by this consumer")
	}
	_, err := k.c.CommitMessage(km)
	return err
}

func (k *KafkaConsumer) Close() error {
	return k.c.Close()
}

type KafkaProducer struct {
	p *kafka.Producer
}

func NewKafkaProducer(brokers string) (*KafkaProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": brokers})
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	return &KafkaProducer{p: p}, nil
}

// Produce publishes one record and waits for the broker's delivery report,
// so a returned nil means the event is actually on the topic.
func (k *KafkaProducer) Produce(ctx context.Context, topic, key string, value []byte) error {
	delivery := make(chan kafka.Event, 1)
	err := k.p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	select {
	case ev := <-delivery:
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KafkaProducer) Close() {
	k.p.Flush(5000)
	k.p.Close()
}
