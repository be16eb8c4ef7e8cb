package store

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/oarkflow/resetpass"
)

// Kind names an attempt store backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindBuntDB Kind = "buntdb"
	KindRedis  Kind = "redis"
)

// Options selects and configures the backend opened by Open.
type Options struct {
	Kind          Kind
	BuntDBPath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open the configured attempt store. The returned closer releases the
// backend's resources and is never nil.
func Open(ctx context.Context, opts Options) (resetpass.AttemptStore, io.Closer, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemoryStore(), nopCloser{}, nil
	case KindBuntDB:
		path := opts.BuntDBPath
		if path == "" {
			path = ":memory:"
		}
		bs, err := NewBuntStore(path)
		if err != nil {
			return nil, nil, err
		}
		return bs, bs, nil
	case KindRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", opts.RedisAddr, err)
		}
		return NewRedisStore(rdb, opts.RedisPrefix), rdb, nil
	}
	return nil, nil, fmt.Errorf("unknown attempt store %q", opts.Kind)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
