package cache

import (
	"context"
	"time"
)

// Tiered reads through a local cache before a shared one and fills the
// local tier on a shared hit.
type Tiered struct {
	local    Cache
	shared   Cache
	localTTL time.Duration
}

func NewTiered(local, shared Cache, localTTL time.Duration) *Tiered {
	return &Tiered{local: local, shared: shared, localTTL: localTTL}
}

func (t *Tiered) Get(ctx context.Context, key string) (map[string]interface{}, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		return v, true
	}
	v, ok := t.shared.Get(ctx, key)
	if ok {
		t.local.Put(ctx, key, v, t.localTTL)
	}
	return v, ok
}

func (t *Tiered) Put(ctx context.Context, key string, value map[string]interface{}, ttl time.Duration) {
	t.shared.Put(ctx, key, value, ttl)
	localTTL := t.localTTL
	if ttl < localTTL {
		localTTL = ttl
	}
	t.local.Put(ctx, key, value, localTTL)
}
