package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryConsumer_RewindReplaysUncommitted(t *testing.T) {
	broker := NewMemoryBroker()
	ctx := context.Background()
	require.NoError(t, broker.Produce(ctx, "t", "k1", []byte("v1")))
	require.NoError(t, broker.Produce(ctx, "t", "k2", []byte("v2")))

	c := broker.Consumer("t")

	m1, err := c.Fetch(time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, m1)
	require.NoError(t, c.Commit(m1))

	m2, err := c.Fetch(time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, m2)
	// m2 fetched but not committed

	m3, err := c.Fetch(time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, m3)

	c.Rewind()
	again, err := c.Fetch(time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, []byte("v2"), again.Value)
	assert.Equal(t, 1, c.Committed())
}

func Test_MemoryBroker_ProduceFailureInjection(t *testing.T) {
	broker := NewMemoryBroker()
	ctx := context.Background()

	broker.FailProduceWith(assert.AnError)
	require.Error(t, broker.Produce(ctx, "t", "k", []byte("v")))
	assert.Empty(t, broker.Messages("t"))

	broker.FailProduceWith(nil)
	require.NoError(t, broker.Produce(ctx, "t", "k", []byte("v")))
	assert.Len(t, broker.Messages("t"), 1)
}
