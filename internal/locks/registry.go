// Package locks provides a keyed mutual-exclusion registry: at most one
// holder per key, non-blocking try-acquire, explicit release. There is
// deliberately no ownership ticket; each key is acquired and released
// by a single well-defined scheduled task.
package locks

import "sync"

type Registry interface {
	// TryLock marks key held and returns true if it was free. It never
	// blocks; contention means an immediate false.
	TryLock(key string) bool
	// Unlock clears the mark unconditionally.
	Unlock(key string)
}

// Memory is the in-process implementation. It is injected rather than
// package-global so tests and callers control its lifetime.
type Memory struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]bool)}
}

func (m *Memory) TryLock(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false
	}
	m.held[key] = true
	return true
}

func (m *Memory) Unlock(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}
