// Package savefile stores scale records in the per-user application data
// directory, one YAML document per entity.
package savefile

import (
	"context"
	"fmt"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/scalekit/internal/tag"
)

const scalesObject = "scales"

// Backend implements storage.Backend on top of gdata.
type Backend struct {
	mu sync.Mutex
	m  *gdata.Manager
}

// Open opens (creating if needed) the data directory of appName.
func Open(appName string) (*Backend, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("opening save data %q: %w", appName, err)
	}
	return &Backend{m: m}, nil
}

func propName(objectID uint32) string {
	return fmt.Sprintf("%08x", objectID)
}

// SaveScales replaces the entity's document. An empty map leaves an empty
// document behind, which loads as no records.
func (b *Backend) SaveScales(_ context.Context, objectID uint32, scales map[string]tag.Compound) error {
	var data []byte
	if len(scales) > 0 {
		var err error
		if data, err = yaml.Marshal(scales); err != nil {
			return fmt.Errorf("encoding scales of entity %d: %w", objectID, err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.m.SaveObjectProp(scalesObject, propName(objectID), data); err != nil {
		return fmt.Errorf("saving scales of entity %d: %w", objectID, err)
	}
	return nil
}

// LoadScales returns nil records when nothing was saved for the entity.
func (b *Backend) LoadScales(_ context.Context, objectID uint32) (map[string]tag.Compound, error) {
	b.mu.Lock()
	prop := propName(objectID)
	if !b.m.ObjectPropExists(scalesObject, prop) {
		b.mu.Unlock()
		return nil, nil
	}
	data, err := b.m.LoadObjectProp(scalesObject, prop)
	b.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("loading scales of entity %d: %w", objectID, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var scales map[string]tag.Compound
	if err := yaml.Unmarshal(data, &scales); err != nil {
		return nil, fmt.Errorf("decoding scales of entity %d: %w", objectID, err)
	}
	return scales, nil
}

// DeleteScales truncates the entity's document.
func (b *Backend) DeleteScales(ctx context.Context, objectID uint32) error {
	return b.SaveScales(ctx, objectID, nil)
}
