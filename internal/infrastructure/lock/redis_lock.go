package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalog-sync-engine/internal/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the lock only when this process still holds it, so
// a run that outlives its TTL cannot release a lock a later run acquired.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RedisSyncLocker is a per-business advisory lock around full-sync runs
// backed by Redis SETNX. The TTL bounds how long a crashed run can block the
// next one.
type RedisSyncLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisSyncLocker creates a new Redis-backed sync locker
func NewRedisSyncLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisSyncLocker {
	return &RedisSyncLocker{
		client: client,
		ttl:    ttl,
		logger: logger,
		tokens: make(map[string]string),
	}
}

var _ ports.SyncLocker = (*RedisSyncLocker)(nil)

func lockKey(businessID string) string {
	return "catalog-sync:lock:" + businessID
}

// Acquire takes the business's lock, returning false when another run holds
// it.
func (l *RedisSyncLocker) Acquire(ctx context.Context, businessID string) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(businessID), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[businessID] = token
	l.mu.Unlock()
	return true, nil
}

// Release frees the business's lock if this locker still holds it.
func (l *RedisSyncLocker) Release(ctx context.Context, businessID string) error {
	l.mu.Lock()
	token, ok := l.tokens[businessID]
	delete(l.tokens, businessID)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	res, err := l.client.Eval(ctx, releaseScript, []string{lockKey(businessID)}, token).Result()
	if err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	if n, _ := res.(int64); n == 0 {
		l.logger.Warn().Str("businessId", businessID).Msg("Sync lock expired before release")
	}
	return nil
}
