// db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
)

var (
	RedisClient   *redis.Client
	encryptionKey []byte
)

// unlockScript deletes the lock only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := SetEncryptionKey(viper.GetString("redis.encryptionKey")); err != nil {
		return err
	}

	logger.Info("Successfully connected to Redis", zap.Bool("encrypted", len(encryptionKey) > 0))
	return nil
}

// SetEncryptionKey enables AES-GCM for cached values. An empty key stores
// values in plain text.
func SetEncryptionKey(key string) error {
	if key == "" {
		encryptionKey = nil
		return nil
	}
	if len(key) != 32 {
		return fmt.Errorf("invalid encryption key length: must be 32 bytes: %w", gate_errors.ErrInvalidCacheConfig)
	}
	encryptionKey = []byte(key)
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func seal(value []byte) (string, error) {
	if len(encryptionKey) == 0 {
		return string(value), nil
	}
	encrypted, err := encrypt(value)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt value: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func open(stored string) ([]byte, error) {
	if len(encryptionKey) == 0 {
		return []byte(stored), nil
	}
	encrypted, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	value, err := decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt value: %w", err)
	}
	return value, nil
}

// CacheValue stores value under key for ttl. A zero ttl never expires.
func CacheValue(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored, err := seal(value)
	if err != nil {
		return err
	}
	if err := RedisClient.Set(ctx, key, stored, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	logger.Debug("Value cached successfully", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// GetCachedValue returns nil, nil when the key is absent.
func GetCachedValue(ctx context.Context, key string) ([]byte, error) {
	stored, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Value not found in cache", zap.String("key", key))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	return open(stored)
}

func DeleteCachedValue(ctx context.Context, key string) error {
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from cache: %w", key, err)
	}
	logger.Debug("Value deleted from cache", zap.String("key", key))
	return nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

// LockResource tries once to take the named lock for ttl. token identifies
// the holder and must be passed back to UnlockResource.
func LockResource(ctx context.Context, resourceName, token string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resourceName)
	locked, err := RedisClient.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	logger.Debug("Lock acquisition attempt",
		zap.String("resource", resourceName),
		zap.Bool("locked", locked))
	return locked, nil
}

func UnlockResource(ctx context.Context, resourceName, token string) error {
	key := fmt.Sprintf("lock:%s", resourceName)
	err := unlockScript.Run(ctx, RedisClient, []string{key}, token).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	logger.Debug("Lock released", zap.String("resource", resourceName))
	return nil
}
