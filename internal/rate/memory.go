package rate

import (
	"context"
	"sync"
	"time"
)

type memoryWindow struct {
	mu     sync.Mutex
	hits   []time.Time
	window time.Duration
	// dead marks a window removed by sweep; holders must re-resolve.
	dead   bool
}

// MemoryStore keeps windows in process memory.
type MemoryStore struct {
	mu          sync.Mutex
	windows     map[string]*memoryWindow
	now         func() time.Time
	lastCleanup time.Time
	cleanup     time.Duration
}

// NewMemoryStore creates an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		windows: make(map[string]*memoryWindow),
		now:     now,
		cleanup: time.Minute,
	}
}

// CheckAndRecord implements Store.
func (s *MemoryStore) CheckAndRecord(_ context.Context, key string, window time.Duration, max int) (bool, error) {
	if window <= 0 {
		return false, ErrInvalidWindow
	}
	now := s.now()
	w := s.entry(key, window, now)
	w.mu.Lock()
	for w.dead {
		w.mu.Unlock()
		w = s.entry(key, window, now)
		w.mu.Lock()
	}
	defer w.mu.Unlock()

	w.window = window
	w.prune(now)
	if len(w.hits) >= max {
		return false, nil
	}
	w.hits = append(w.hits, now)
	return true, nil
}

func (s *MemoryStore) entry(key string, window time.Duration, now time.Time) *memoryWindow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastCleanup) >= s.cleanup {
		s.sweep(now)
		s.lastCleanup = now
	}

	w, ok := s.windows[key]
	if !ok {
		w = &memoryWindow{window: window}
		s.windows[key] = w
	}
	return w
}

// sweep drops keys with no hits inside their window. Caller holds s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	for key, w := range s.windows {
		if !w.mu.TryLock() {
			continue
		}
		w.prune(now)
		if len(w.hits) == 0 {
			w.dead = true
			delete(s.windows, key)
		}
		w.mu.Unlock()
	}
}

// prune drops hits at or before now-window. Caller holds w.mu.
func (w *memoryWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.hits = append(w.hits[:0], w.hits[i:]...)
	}
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
