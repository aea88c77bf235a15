package matchmaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking/internal/bus"
)

// Full pipeline over one shared store and broker: requestMatch -> request
// topic -> ingestor -> waiting queue -> former -> complete topic ->
// completion processor -> per-user cache -> getMatchInfo.
func Test_EndToEnd_ThreeUsersOneMatch(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	broker := bus.NewMemoryBroker()

	limiter := NewRateLimiter(rdb, 100*time.Millisecond, time.Second)
	cache := NewMatchCache(rdb, time.Hour)
	svc := NewService(limiter, cache, broker, testRequestTopic, discardLogger())

	queue := NewWaitingQueue(rdb)
	former := NewFormer(queue, broker, testCompleteTopic, 3, discardLogger())
	ingestor := NewIngestor(broker.Consumer(testRequestTopic), queue, former, testLoopConfig, discardLogger())
	completion := NewCompletion(broker.Consumer(testCompleteTopic), cache, testLoopConfig, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ingestor.Run(ctx)
	go completion.Run(ctx)

	users := []string{"alice", "bob", "carol"}
	for _, u := range users {
		require.NoError(t, svc.RequestMatch(ctx, u))
	}

	matches := make(map[string]*Match)
	require.Eventually(t, func() bool {
		for _, u := range users {
			m, err := svc.GetMatchInfo(context.Background(), u)
			if err != nil || m == nil {
				return false
			}
			matches[u] = m
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	// all three share one match id and the same 3-participant set
	first := matches["alice"]
	require.Len(t, first.UserIDs, 3)
	for _, u := range users {
		assert.Equal(t, first.MatchID, matches[u].MatchID)
		assert.ElementsMatch(t, users, matches[u].UserIDs)
	}

	// a user outside the batch has no match
	m, err := svc.GetMatchInfo(context.Background(), "dave")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func Test_Service_ThrottlesRapidRequests(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	broker := bus.NewMemoryBroker()
	limiter := NewRateLimiter(rdb, 100*time.Millisecond, time.Second)
	svc := NewService(limiter, NewMatchCache(rdb, time.Hour), broker, testRequestTopic, discardLogger())
	ctx := context.Background()

	require.NoError(t, svc.RequestMatch(ctx, "alice"))

	err = svc.RequestMatch(ctx, "alice")
	var throttled *ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Greater(t, throttled.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, throttled.RetryAfter, 100*time.Millisecond)

	// the throttled attempt must not have published a second event
	assert.Len(t, broker.Messages(testRequestTopic), 1)
}

func Test_Service_PublishFailureSurfacesError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	broker := bus.NewMemoryBroker()
	broker.FailProduceWith(assert.AnError)

	limiter := NewRateLimiter(rdb, 100*time.Millisecond, time.Second)
	svc := NewService(limiter, NewMatchCache(rdb, time.Hour), broker, testRequestTopic, discardLogger())

	err = svc.RequestMatch(context.Background(), "alice")
	require.Error(t, err)
	var throttled *ThrottledError
	assert.False(t, errors.As(err, &throttled), "publish failure must not read as throttling")
}
