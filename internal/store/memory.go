package store

import "sync"

// Memory is an in-process store, used for tests and the memory: URL.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
	writes  int
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Read(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *Memory) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	m.writes++
	return nil
}

// Writes reports how many Write calls succeeded.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *Memory) Close() error { return nil }
