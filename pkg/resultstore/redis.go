package resultstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ocr-result:"

// RedisStore is a Store backed by Redis, for document-service deployments
// with more than one replica where an in-process map would miss results
// delivered to a sibling. Entries carry no TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store and verifies the connection.
func NewRedisStore(host, port string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		DB:           0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Save(ctx context.Context, documentID, text string) error {
	err := s.client.Set(ctx, keyPrefix+documentID, text, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to save OCR result in Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, documentID string) (string, bool, error) {
	text, err := s.client.Get(ctx, keyPrefix+documentID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get OCR result from Redis: %w", err)
	}
	return text, true, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
