package store

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryConfig tunes the in-process backend.
type MemoryConfig struct {
	// TTL evicts entries this long after they were stored (0 = no TTL).
	TTL time.Duration
	// MaxEntries evicts the oldest entries once the count is exceeded
	// (0 = unbounded).
	MaxEntries int
	// SweepInterval controls how often expired entries are swept. Expired
	// entries are also rejected on read, so the sweep only reclaims memory.
	// Default: 30s when a TTL is set.
	SweepInterval time.Duration
}

// MemoryStore is the in-process result store: a keyed map with TTL and
// count-based eviction. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // insertion order, oldest first
	cfg     MemoryConfig
	closed  bool
	stop    chan struct{}
}

type memoryEntry struct {
	taskID   string
	res      *Result
	storedAt time.Time
}

// NewMemoryStore creates an in-process result store.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.TTL > 0 && cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	s := &MemoryStore{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		cfg:     cfg,
		stop:    make(chan struct{}),
	}

	if cfg.TTL > 0 {
		go s.sweep()
	}
	return s
}

// Put stores a result, evicting the oldest entries when MaxEntries is
// exceeded.
func (s *MemoryStore) Put(_ context.Context, taskID string, res *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, exists := s.entries[taskID]; exists {
		return ErrDuplicate
	}

	el := s.order.PushBack(&memoryEntry{taskID: taskID, res: res, storedAt: time.Now()})
	s.entries[taskID] = el

	if s.cfg.MaxEntries > 0 {
		for len(s.entries) > s.cfg.MaxEntries {
			oldest := s.order.Front()
			s.remove(oldest.Value.(*memoryEntry).taskID, oldest)
		}
	}
	return nil
}

// Get returns the stored result. Entries past their TTL are treated as
// evicted even if the sweeper has not reclaimed them yet.
func (s *MemoryStore) Get(_ context.Context, taskID string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	el, ok := s.entries[taskID]
	if !ok {
		return nil, ErrNotFound
	}

	e := el.Value.(*memoryEntry)
	if s.expired(e, time.Now()) {
		s.remove(taskID, el)
		return nil, ErrNotFound
	}
	return e.res, nil
}

// Len returns the live entry count.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the sweeper and drops all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.stop)
	s.entries = nil
	s.order.Init()
	return nil
}

func (s *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return s.cfg.TTL > 0 && now.Sub(e.storedAt) > s.cfg.TTL
}

// remove must be called with the lock held.
func (s *MemoryStore) remove(taskID string, el *list.Element) {
	s.order.Remove(el)
	delete(s.entries, taskID)
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			for el := s.order.Front(); el != nil; {
				next := el.Next()
				e := el.Value.(*memoryEntry)
				if !s.expired(e, now) {
					break // ordered by insertion time
				}
				s.remove(e.taskID, el)
				el = next
			}
			s.mu.Unlock()
		}
	}
}
