package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oarkflow/resetpass"
	"github.com/oarkflow/resetpass/errors"
)

const maxUpdateRetries = 8

// NewRedisStore create attempt store on top of a redis client
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "resetpass:" + attemptKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// RedisStore attempt store shared between server replicas. Updates use
// optimistic WATCH/MULTI transactions.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func (rs *RedisStore) key(id string) string {
	return rs.prefix + id
}

// Create store the attempt
func (rs *RedisStore) Create(ctx context.Context, attempt *resetpass.Attempt, ttl time.Duration) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return rs.rdb.Set(ctx, rs.key(attempt.ID), data, ttl).Err()
}

// Get according to the ID for the attempt
func (rs *RedisStore) Get(ctx context.Context, id string) (*resetpass.Attempt, error) {
	val, err := rs.rdb.Get(ctx, rs.key(id)).Result()
	if err == redis.Nil {
		return nil, errors.ErrAttemptNotFound
	} else if err != nil {
		return nil, err
	}
	return decodeAttempt(val)
}

// Update apply fn between WATCH and EXEC, retrying when another writer
// touched the key first
func (rs *RedisStore) Update(ctx context.Context, id string, fn func(*resetpass.Attempt) error) (*resetpass.Attempt, error) {
	key := rs.key(id)
	var current, next *resetpass.Attempt

	txf := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err != nil {
			return err
		}
		if current, err = decodeAttempt(val); err != nil {
			return err
		}
		next = current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := rs.rdb.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return next, nil
		case err == redis.TxFailedErr:
			continue
		case err == redis.Nil:
			return nil, errors.ErrAttemptNotFound
		default:
			return current, err
		}
	}
	return nil, fmt.Errorf("updating attempt %s: too much contention", id)
}

// Delete remove the attempt
func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	return rs.rdb.Del(ctx, rs.key(id)).Err()
}
