package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/modelgate/logging"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache keeps results in process. Entries are stored encoded so every
// Get hands out a fresh copy.
type MemoryCache struct {
	cache *otter.Cache[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryCache holds up to maxSize entries. Entries never outlive maxTTL
// even when Put asks for longer.
func NewMemoryCache(maxSize int, maxTTL time.Duration) (*MemoryCache, error) {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if maxTTL <= 0 {
		maxTTL = time.Hour
	}

	c, err := otter.New(&otter.Options[string, memoryEntry]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, memoryEntry](maxTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("constructing cache: %w", err)
	}
	return &MemoryCache{cache: c, now: time.Now}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (map[string]interface{}, bool) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		m.cache.Invalidate(key)
		return nil, false
	}
	value, err := decode(e.data)
	if err != nil {
		logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		m.cache.Invalidate(key)
		return nil, false
	}
	return value, true
}

func (m *MemoryCache) Put(_ context.Context, key string, value map[string]interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := encode(value)
	if err != nil {
		logger.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return
	}
	m.cache.Set(key, memoryEntry{data: data, expiresAt: m.now().Add(ttl)})
}
