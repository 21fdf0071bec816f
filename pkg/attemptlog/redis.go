package attemptlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/netforge-io/netforge/pkg/util"
)

// redisKeyPrefix namespaces attempt-log lists. One list per batch keeps
// appends O(1) and lets retention expire whole batches at once.
const redisKeyPrefix = "netforge:attempts:"

// RedisLogger appends attempt records to per-batch Redis lists. Used when
// several orchestrator instances (or the CLI and a status viewer) need to
// share one attempt log.
type RedisLogger struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisLogger creates a Redis-backed attempt logger and verifies the
// connection.
func NewRedisLogger(addr string) (*RedisLogger, error) {
	l := &RedisLogger{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		ctx: context.Background(),
	}
	if err := l.client.Ping(l.ctx).Err(); err != nil {
		return nil, fmt.Errorf("attemptlog: redis ping %s: %w", addr, err)
	}
	return l, nil
}

// Log implements Logger. Records without a batch id land in a shared
// "unbatched" list so nothing is silently dropped.
func (l *RedisLogger) Log(record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("attemptlog: marshal record: %w", err)
	}
	return l.client.RPush(l.ctx, l.key(record.BatchID), data).Err()
}

// Query implements Logger. Queries without a batch id scan all batch lists.
func (l *RedisLogger) Query(filter Filter) ([]*Record, error) {
	var keys []string
	if filter.BatchID != "" {
		keys = []string{l.key(filter.BatchID)}
	} else {
		var err error
		keys, err = l.client.Keys(l.ctx, redisKeyPrefix+"*").Result()
		if err != nil {
			return nil, fmt.Errorf("attemptlog: list batch keys: %w", err)
		}
	}

	var records []*Record
	for _, key := range keys {
		lines, err := l.client.LRange(l.ctx, key, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("attemptlog: read %s: %w", key, err)
		}
		for i, line := range lines {
			var record Record
			if err := json.Unmarshal([]byte(line), &record); err != nil {
				util.Warnf("attemptlog: skipping malformed entry %d in %s: %v", i, key, err)
				continue
			}
			if filter.matches(&record) {
				records = append(records, &record)
			}
		}
	}
	return filter.window(records), nil
}

// Close closes the Redis connection.
func (l *RedisLogger) Close() error {
	return l.client.Close()
}

func (l *RedisLogger) key(batchID string) string {
	if batchID == "" {
		batchID = "unbatched"
	}
	return redisKeyPrefix + batchID
}
