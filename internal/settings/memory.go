package settings

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. The zero value returns Defaults().
type MemoryStore struct {
	mu  sync.Mutex
	cfg *Config
}

func (m *MemoryStore) Get(context.Context) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return Defaults(), nil
	}
	return *m.cfg, nil
}

func (m *MemoryStore) Set(_ context.Context, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &cfg
	return nil
}
