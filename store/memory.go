package store

import (
	"context"
	"sync"
	"time"

	"github.com/oarkflow/resetpass"
	"github.com/oarkflow/resetpass/errors"
)

const sweepEvery = 128

// NewMemoryStore create attempt store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// MemoryStore attempt store kept in process memory
type MemoryStore struct {
	sync.RWMutex
	data    map[string]memoryEntry
	now     func() time.Time
	creates int
}

type memoryEntry struct {
	attempt   resetpass.Attempt
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Create store the attempt
func (ms *MemoryStore) Create(_ context.Context, attempt *resetpass.Attempt, ttl time.Duration) error {
	ms.Lock()
	defer ms.Unlock()

	now := ms.now()
	ms.creates++
	if ms.creates%sweepEvery == 0 {
		ms.sweep(now)
	}

	entry := memoryEntry{attempt: stripped(*attempt)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	ms.data[attempt.ID] = entry
	return nil
}

// Get according to the ID for the attempt
func (ms *MemoryStore) Get(_ context.Context, id string) (*resetpass.Attempt, error) {
	ms.RLock()
	defer ms.RUnlock()

	e, ok := ms.data[id]
	if !ok || e.expired(ms.now()) {
		return nil, errors.ErrAttemptNotFound
	}
	return e.attempt.Clone(), nil
}

// Update apply fn to the attempt under the store lock
func (ms *MemoryStore) Update(_ context.Context, id string, fn func(*resetpass.Attempt) error) (*resetpass.Attempt, error) {
	ms.Lock()
	defer ms.Unlock()

	e, ok := ms.data[id]
	if !ok || e.expired(ms.now()) {
		delete(ms.data, id)
		return nil, errors.ErrAttemptNotFound
	}
	next := e.attempt
	if err := fn(&next); err != nil {
		return e.attempt.Clone(), err
	}
	e.attempt = stripped(next)
	ms.data[id] = e
	return e.attempt.Clone(), nil
}

// Delete remove the attempt
func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.Lock()
	defer ms.Unlock()

	delete(ms.data, id)
	return nil
}

// Len number of live attempts
func (ms *MemoryStore) Len() int {
	ms.RLock()
	defer ms.RUnlock()

	n := 0
	now := ms.now()
	for _, e := range ms.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// stripped drops the per-request passwords, matching what the
// serializing stores keep.
func stripped(a resetpass.Attempt) resetpass.Attempt {
	a.NewPassword = ""
	a.ConfirmPassword = ""
	return a
}

func (ms *MemoryStore) sweep(now time.Time) {
	for id, e := range ms.data {
		if e.expired(now) {
			delete(ms.data, id)
		}
	}
}
