package cache

import (
	"context"
	"sync"

	"github.com/ironsheep/mask-regions/internal/result"
)

// DefaultMemoryEntries bounds a Memory cache created with a size <= 0.
const DefaultMemoryEntries = 64

// Memory is an in-process result cache for long-running servers without
// Redis. When full, the oldest entry is dropped.
type Memory struct {
	mu      sync.Mutex
	max     int
	order   []string
	entries map[string]*result.Result
}

// NewMemory creates a cache holding at most size results.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	return &Memory{
		max:     size,
		entries: make(map[string]*result.Result),
	}
}

// Get returns the cached result for key, or nil on a miss.
func (m *Memory) Get(ctx context.Context, key string) (*result.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key], nil
}

// Set stores r under key. Only success results are cached.
func (m *Memory) Set(ctx context.Context, key string, r *result.Result) error {
	if r == nil || !r.Success {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; !ok {
		if len(m.order) >= m.max {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = r
	return nil
}

// Len returns the number of cached results.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
