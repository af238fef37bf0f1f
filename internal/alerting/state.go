package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NotifyTTL is how long a dispatched anomaly suppresses repeat
// notifications for the same dedup key.
const NotifyTTL = 6 * time.Hour

// NotifyState tracks which anomalies have already been dispatched so
// re-evaluation on every incoming event does not spam the owner.
type NotifyState struct {
	redis *redis.Client
}

// NewNotifyState creates a new notify state tracker
func NewNotifyState(redisClient *redis.Client) *NotifyState {
	return &NotifyState{redis: redisClient}
}

// MarkIfNew atomically records the anomaly key. It returns true when
// the key was not present, meaning the anomaly should be dispatched.
func (ns *NotifyState) MarkIfNew(ctx context.Context, dedupKey string) (bool, error) {
	key := fmt.Sprintf("anomaly_notified:%s", dedupKey)

	ok, err := ns.redis.SetNX(ctx, key, time.Now().Format(time.RFC3339), NotifyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark anomaly in Redis: %w", err)
	}
	return ok, nil
}

// Clear removes the dispatch marker, allowing the anomaly to notify
// again immediately.
func (ns *NotifyState) Clear(ctx context.Context, dedupKey string) error {
	key := fmt.Sprintf("anomaly_notified:%s", dedupKey)
	return ns.redis.Del(ctx, key).Err()
}

// ActiveKeys returns all currently suppressed dedup keys (for monitoring)
func (ns *NotifyState) ActiveKeys(ctx context.Context) ([]string, error) {
	keys, err := ns.redis.Keys(ctx, "anomaly_notified:*").Result()
	if err != nil {
		return nil, err
	}

	active := make([]string, 0, len(keys))
	for _, key := range keys {
		active = append(active, key[len("anomaly_notified:"):])
	}
	return active, nil
}
