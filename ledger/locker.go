package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/modelgate/db"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/retry"
)

// Locker serialises work per key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// KeyedLocker serialises callers within one process.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyLock)}
}

func (k *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.ch
				k.release(key, l)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}
}

func (k *KeyedLocker) release(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// RedisLocker serialises callers across processes with a SETNX lock.
// The ttl bounds how long a crashed holder can block the key.
type RedisLocker struct {
	ttl          time.Duration
	pollInterval time.Duration
}

func NewRedisLocker(ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{ttl: ttl, pollInterval: 10 * time.Millisecond}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	resource := "grant:" + key
	for {
		locked, err := db.LockResource(ctx, resource, token, r.ttl)
		if err != nil {
			return nil, err
		}
		if locked {
			break
		}
		if err := retry.Wait(ctx, r.pollInterval); err != nil {
			return nil, fmt.Errorf("waiting for lock %s: %w", resource, err)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := db.UnlockResource(ctx, resource, token); err != nil {
				logger.Warn("Failed to release grant lock", zap.String("resource", resource), zap.Error(err))
			}
		})
	}, nil
}
