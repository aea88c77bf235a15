package matchmaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// WaitingKey is the Redis list every worker instance shares.
const WaitingKey = "matchmaking:waiting"

// ErrShortClaim reports a claim transaction that committed but removed fewer
// entries than requested. The transaction trims exactly what it read, so this
// means something outside the worker mutated the list mid-claim; it is
// escalated rather than retried.
var ErrShortClaim = errors.New("claim removed fewer users than requested")

// WaitingQueue is the FIFO of users waiting for a match, shared by every
// worker instance through one Redis list.
//
// Entries are plain user ids and the list is a multiset: a user whose second
// request is admitted before the first is matched occupies two slots and can
// end up in two matches. That behavior is kept as-is; de-duplicating here
// would change admission semantics.
type WaitingQueue struct {
	rdb *redis.Client
}

func NewWaitingQueue(rdb *redis.Client) *WaitingQueue {
	return &WaitingQueue{rdb: rdb}
}

// Push appends a user to the tail.
func (q *WaitingQueue) Push(ctx context.Context, userID string) error {
	return q.rdb.RPush(ctx, WaitingKey, userID).Err()
}

func (q *WaitingQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, WaitingKey).Result()
}

// Claim atomically removes the oldest n users. It returns (nil, nil) when
// the queue holds fewer than n entries or when another instance modified the
// list mid-claim; the caller just waits for its next trigger. Mutual
// exclusion across worker instances rides entirely on the WATCH transaction,
// never on a read-then-write pair.
func (q *WaitingQueue) Claim(ctx context.Context, n int) ([]string, error) {
	var claimed []string
	txn := func(tx *redis.Tx) error {
		users, err := tx.LRange(ctx, WaitingKey, 0, int64(n-1)).Result()
		if err != nil {
			return err
		}
		if len(users) < n {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LTrim(ctx, WaitingKey, int64(n), -1)
			return nil
		})
		if err != nil {
			return err
		}
		claimed = users
		return nil
	}

	err := q.rdb.Watch(ctx, txn, WaitingKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if claimed != nil && len(claimed) != n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShortClaim, len(claimed), n)
	}
	return claimed, nil
}

// Requeue puts claimed users back at the front in their original relative
// order, compensating a claim whose match could not be published.
func (q *WaitingQueue) Requeue(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	// LPUSH prepends one value at a time, so push in reverse to land the
	// first claimed user back at the head.
	vals := make([]any, 0, len(userIDs))
	for i := len(userIDs) - 1; i >= 0; i-- {
		vals = append(vals, userIDs[i])
	}
	return q.rdb.LPush(ctx, WaitingKey, vals...).Err()
}
