package storage

import (
	"context"
	"sync"

	"github.com/udisondev/scalekit/internal/tag"
)

// MemoryBackend keeps records in process memory. Records are cloned on the
// way in and out.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[uint32]map[string]tag.Compound
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[uint32]map[string]tag.Compound)}
}

func (m *MemoryBackend) SaveScales(_ context.Context, objectID uint32, scales map[string]tag.Compound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(scales) == 0 {
		delete(m.records, objectID)
		return nil
	}
	m.records[objectID] = cloneScales(scales)
	return nil
}

func (m *MemoryBackend) LoadScales(_ context.Context, objectID uint32) (map[string]tag.Compound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneScales(m.records[objectID]), nil
}

func (m *MemoryBackend) DeleteScales(_ context.Context, objectID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, objectID)
	return nil
}

// Len returns the number of entities stored.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func cloneScales(in map[string]tag.Compound) map[string]tag.Compound {
	out := make(map[string]tag.Compound, len(in))
	for id, c := range in {
		out[id] = c.Clone()
	}
	return out
}
