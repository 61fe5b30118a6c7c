package localstore

import (
	"context"
	"sync"
)

// Memory keeps envelopes in process. Used by tests and the memory driver.
type Memory struct {
	mu        sync.Mutex
	namespace string
	items     map[string]Envelope
}

func NewMemory(namespace string) *Memory {
	return &Memory{namespace: namespace, items: make(map[string]Envelope)}
}

func (m *Memory) Read(_ context.Context, name string) (Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	env, ok := m.items[Key(m.namespace, name)]
	if !ok {
		return Envelope{}, ErrNotFound
	}
	return env, nil
}

func (m *Memory) Write(_ context.Context, name string, env Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[Key(m.namespace, name)] = env
	return nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, Key(m.namespace, name))
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error {
	return nil
}
