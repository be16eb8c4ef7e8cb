package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/oarkflow/resetpass"
	"github.com/oarkflow/resetpass/errors"
)

const attemptKeyPrefix = "attempt:"

// NewBuntStore open a buntdb attempt store at path; ":memory:" keeps it in
// memory only.
func NewBuntStore(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening buntdb %q: %w", path, err)
	}
	return &BuntStore{db: db}, nil
}

// BuntStore attempt store backed by buntdb, using its key expiry for the
// attempt TTL
type BuntStore struct {
	db *buntdb.DB
}

func buntKey(id string) string {
	return attemptKeyPrefix + id
}

// Create store the attempt
func (bs *BuntStore) Create(_ context.Context, attempt *resetpass.Attempt, ttl time.Duration) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	return bs.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(buntKey(attempt.ID), string(data), setOptions(ttl))
		return err
	})
}

// Get according to the ID for the attempt
func (bs *BuntStore) Get(_ context.Context, id string) (*resetpass.Attempt, error) {
	var attempt *resetpass.Attempt
	err := bs.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(buntKey(id))
		if err != nil {
			return err
		}
		attempt, err = decodeAttempt(val)
		return err
	})
	if err == buntdb.ErrNotFound {
		return nil, errors.ErrAttemptNotFound
	}
	return attempt, err
}

// Update apply fn inside a single buntdb write transaction
func (bs *BuntStore) Update(_ context.Context, id string, fn func(*resetpass.Attempt) error) (*resetpass.Attempt, error) {
	var current, next *resetpass.Attempt
	err := bs.db.Update(func(tx *buntdb.Tx) error {
		key := buntKey(id)
		val, err := tx.Get(key)
		if err != nil {
			return err
		}
		if current, err = decodeAttempt(val); err != nil {
			return err
		}
		ttl, err := tx.TTL(key)
		if err != nil {
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
		_, _, err = tx.Set(key, string(data), setOptions(ttl))
		return err
	})
	switch {
	case err == buntdb.ErrNotFound:
		return nil, errors.ErrAttemptNotFound
	case err != nil:
		return current, err
	}
	return next, nil
}

// Delete remove the attempt
func (bs *BuntStore) Delete(_ context.Context, id string) error {
	err := bs.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(buntKey(id))
		return err
	})
	if err == buntdb.ErrNotFound {
		return nil
	}
	return err
}

// Close the underlying database
func (bs *BuntStore) Close() error {
	return bs.db.Close()
}

func setOptions(ttl time.Duration) *buntdb.SetOptions {
	if ttl <= 0 {
		return nil
	}
	return &buntdb.SetOptions{Expires: true, TTL: ttl}
}

func decodeAttempt(val string) (*resetpass.Attempt, error) {
	var attempt resetpass.Attempt
	if err := json.Unmarshal([]byte(val), &attempt); err != nil {
		return nil, fmt.Errorf("decoding attempt: %w", err)
	}
	return &attempt, nil
}
