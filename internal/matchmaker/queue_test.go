package matchmaker

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*WaitingQueue, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWaitingQueue(rdb), mr
}

func Test_WaitingQueue_FIFOClaim(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, q.Push(ctx, u))
	}

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	users, err := q.Claim(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, users)

	n, err = q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func Test_WaitingQueue_ClaimShortQueue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "a"))
	require.NoError(t, q.Push(ctx, "b"))

	users, err := q.Claim(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, users)

	// nothing was removed
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func Test_WaitingQueue_RequeuePreservesOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Push(ctx, u))
	}

	users, err := q.Claim(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, users)

	require.NoError(t, q.Requeue(ctx, users))

	// claimed users are back at the front, ahead of "d", each exactly once
	all, err := q.rdb.LRange(ctx, WaitingKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, all)
}

func Test_WaitingQueue_DuplicateEntriesAllowed(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "a"))
	require.NoError(t, q.Push(ctx, "a"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

// With a queue of exactly n entries, concurrent claims must hand the batch to
// exactly one caller; everyone else sees a short queue or an aborted
// transaction.
func Test_WaitingQueue_ConcurrentClaimsSingleWinner(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, u))
	}

	const attempts = 8
	results := make([][]string, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			defer rdb.Close()
			users, err := NewWaitingQueue(rdb).Claim(ctx, 3)
			assert.NoError(t, err)
			results[i] = users
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, users := range results {
		if users != nil {
			winners++
			assert.Equal(t, []string{"a", "b", "c"}, users)
		}
	}
	assert.Equal(t, 1, winners)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
