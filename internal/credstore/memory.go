package credstore

import "sync"

// Memory is a process-local store. Used directly in tests and as the
// degraded mode of File when durable storage is unavailable.
type Memory struct {
	mu   sync.Mutex
	pair *Pair
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Read() *Pair {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pair == nil {
		return nil
	}
	cp := *m.pair
	return &cp
}

func (m *Memory) Write(pair Pair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := pair
	m.pair = &cp
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = nil
}
