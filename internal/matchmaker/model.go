package matchmaker

import "time"

// Match is the outcome of claiming one full batch of waiting users. The same
// shape travels on the complete topic and is cached per participant for
// client polling.
type Match struct {
	MatchID string   `json:"matchId"`
	UserIDs []string `json:"userIds"`
}

// LoopConfig carries the poll and backoff tunables shared by the consume
// loops.
type LoopConfig struct {
	PollTimeout    time.Duration
	TopicBackoff   time.Duration
	ConsumeBackoff time.Duration
}
