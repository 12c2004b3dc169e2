// Package cache holds computed model results keyed by model and input.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is best-effort: implementations report store failures as a miss
// and swallow write errors.
type Cache interface {
	Get(ctx context.Context, key string) (map[string]interface{}, bool)
	Put(ctx context.Context, key string, value map[string]interface{}, ttl time.Duration)
}

// Key derives the cache key for modelID and input. Map keys are sorted by
// the JSON encoder at every depth, so key order in input does not matter.
func Key(modelID string, input map[string]interface{}) (string, error) {
	if input == nil {
		input = map[string]interface{}{}
	}
	canonical, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encode input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("model_%s_result_%s", modelID, hex.EncodeToString(sum[:])), nil
}

func encode(value map[string]interface{}) ([]byte, error) {
	return json.Marshal(value)
}

func decode(data []byte) (map[string]interface{}, error) {
	var value map[string]interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}
