package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Prometheus metrics for storage operations.
var (
	storageHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transform_storage_hits_total",
		Help: "Total storage lookups that found an object",
	})

	storageMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transform_storage_misses_total",
		Help: "Total storage lookups for absent keys",
	})

	storageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transform_storage_errors_total",
		Help: "Total storage operation errors",
	}, []string{"operation"}) // "get", "put", "delete"
)

// keyPrefix namespaces object keys in redis.
const keyPrefix = "img:object:"

// RedisStore is a Store backed by redis, holding objects as JSON envelopes.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a redis-backed object store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Get retrieves an object by key. Returns ErrNotFound when the key is
// absent or the stored envelope cannot be decoded.
func (s *RedisStore) Get(ctx context.Context, key string) (*Object, error) {
	data, err := s.redis.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			storageMissesTotal.Inc()
			return nil, ErrNotFound
		}
		storageErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		storageErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("decode object %s: %w", key, err)
	}

	storageHitsTotal.Inc()
	return &obj, nil
}

// Put stores an object under a key with no expiry; source objects live
// until explicitly deleted.
func (s *RedisStore) Put(ctx context.Context, key string, obj *Object) error {
	if obj == nil {
		return fmt.Errorf("object cannot be nil")
	}

	data, err := json.Marshal(obj)
	if err != nil {
		storageErrorsTotal.WithLabelValues("put").Inc()
		return fmt.Errorf("encode object %s: %w", key, err)
	}

	if err := s.redis.Set(ctx, keyPrefix+key, data, 0).Err(); err != nil {
		storageErrorsTotal.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes an object.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, keyPrefix+key).Err(); err != nil {
		storageErrorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
