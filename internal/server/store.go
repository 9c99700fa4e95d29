package server

import (
	"sync"
	"time"
)

// StoredConfig is the last successfully saved configuration for one
// activity instance. Publish re-validates it instead of the publish body.
type StoredConfig struct {
	Arguments map[string]any
	SavedAt   time.Time
}

// ConfigStore persists saved activity configurations between the save and
// publish lifecycle calls.
type ConfigStore interface {
	Save(instanceID string, cfg StoredConfig)
	Get(instanceID string) (StoredConfig, bool)
}

// MemoryStore is a mutex-guarded in-memory ConfigStore. Process restart is
// the only reset, which is acceptable because Journey Builder issues save
// before publish within one configuration session.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]StoredConfig
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]StoredConfig)}
}

// Save records the configuration for an activity instance, overwriting any
// previous save.
func (s *MemoryStore) Save(instanceID string, cfg StoredConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[instanceID] = cfg
}

// Get returns the stored configuration for an activity instance.
func (s *MemoryStore) Get(instanceID string) (StoredConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[instanceID]
	return cfg, ok
}
