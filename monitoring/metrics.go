package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	waitingUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchmaking_waiting_users",
			Help: "Current length of the waiting queue",
		},
	)

	matchesFormed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmaking_matches_formed_total",
			Help: "Total matches formed and published",
		},
	)

	requeuedUsers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmaking_requeued_users_total",
			Help: "Users returned to the queue after a failed publish",
		},
	)

	throttledRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchmaking_throttled_requests_total",
			Help: "Match requests rejected by the rate limiter",
		},
	)

	consumeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_consume_errors_total",
			Help: "Bus consume failures per stream",
		},
		[]string{"stream"},
	)
)

func RecordMatchFormed() { matchesFormed.Inc() }

func RecordRequeue(n int) { requeuedUsers.Add(float64(n)) }

func RecordThrottled() { throttledRequests.Inc() }

func RecordConsumeError(stream string) { consumeErrors.WithLabelValues(stream).Inc() }

// Monitor periodically samples queue state from Redis into gauges.
type Monitor struct {
	rdb      *redis.Client
	queueKey string
}

func NewMonitor(rdb *redis.Client, queueKey string) *Monitor {
	return &Monitor{rdb: rdb, queueKey: queueKey}
}

// Run samples every interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := m.rdb.LLen(ctx, m.queueKey).Result(); err == nil {
				waitingUsers.Set(float64(n))
			}
		}
	}
}
