package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("slot lock not acquired")
)

// Locker guards the read-check-write section of a slot transition.
type Locker interface {
	WithSlotLock(ctx context.Context, slotID string, fn func(ctx context.Context) error) error
}

type redisSlotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotLocker creates a locker that uses a per slot Redis key, so that
// console processes sharing one data directory report a busy slot to each
// other instead of queueing on the table lock file.
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisSlotLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisSlotLocker) WithSlotLock(ctx context.Context, slotID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("hms:lock:slot:%s", slotID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}

// processLocker serialises slot sections inside one process. A slot that is
// already held reports ErrLockNotAcquired instead of blocking, matching the
// Redis locker.
type processLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewProcessLocker() Locker {
	return &processLocker{held: make(map[string]struct{})}
}

func (l *processLocker) WithSlotLock(ctx context.Context, slotID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.held[slotID]; busy {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[slotID] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, slotID)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
