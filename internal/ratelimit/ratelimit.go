// Package ratelimit implements fixed-window request limiting keyed by an
// opaque caller key. Counts reset only when the window elapses, never on a
// denied request. The state is abuse mitigation, not a hard guarantee: it is
// best-effort and lost on restart.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store tracks request counts per key. Take records one request attempt and
// reports whether it falls within the window's allowance.
type Store interface {
	Take(ctx context.Context, key string, window time.Duration, max int) (bool, error)
}

// Limiter applies one window/max policy over a Store.
type Limiter struct {
	store  Store
	window time.Duration
	max    int
	log    *slog.Logger
}

// New returns a Limiter allowing max requests per key per window.
func New(store Store, window time.Duration, max int, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		store:  store,
		window: window,
		max:    max,
		log:    logger.With("component", "ratelimit"),
	}
}

// Allow reports whether key may issue another request right now.
//
// A store failure fails open: the quota exists to keep abuse off the paid
// provider, and a broken store must not take the whole preview path down.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	ok, err := l.store.Take(ctx, key, l.window, l.max)
	if err != nil {
		l.log.Warn("quota store unavailable, allowing request", "error", err)
		return true
	}
	return ok
}

// MemoryStore is the default in-process Store. An expired record is replaced,
// not merged, on next access; at most one live record exists per key.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string]*record
}

type record struct {
	count     int
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-process store. now may be nil, in which
// case time.Now is used; tests inject a controllable clock.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:     now,
		records: make(map[string]*record),
	}
}

// Take implements Store. The read-check-mutate sequence holds the store lock
// so two concurrent requests for the same key cannot both observe an
// under-quota count.
func (s *MemoryStore) Take(_ context.Context, key string, window time.Duration, max int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	r, ok := s.records[key]
	if !ok || !now.Before(r.expiresAt) {
		s.records[key] = &record{count: 1, expiresAt: now.Add(window)}
		return true, nil
	}
	if r.count >= max {
		// Denied without touching the record: the window does not reset on
		// denial, it runs out at the original expiry.
		return false, nil
	}
	r.count++
	return true, nil
}

// Len reports the number of records currently held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
