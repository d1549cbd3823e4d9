// Package world hosts entities and the scale states attached to them.
package world

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/udisondev/scalekit/internal/scale"
	"github.com/udisondev/scalekit/internal/tag"
)

// entityStates holds the states of one entity keyed by category id.
type entityStates struct {
	mu         sync.RWMutex
	byCategory map[string]*scale.State
}

func (es *entityStates) list() []*scale.State {
	es.mu.RLock()
	out := make([]*scale.State, 0, len(es.byCategory))
	for _, s := range es.byCategory {
		out = append(out, s)
	}
	es.mu.RUnlock()
	return out
}

// World is the arena of entities and their scale states, keyed by
// (entity, category). It implements scale.Holder.
//
// Tick, Drain and every state mutation run on the simulation goroutine.
// Lookups are safe from any goroutine.
type World struct {
	entities    sync.Map // map[uint32]*Entity
	states      sync.Map // map[uint32]*entityStates
	entityCount atomic.Int32
	ids         *ObjectIDGenerator
}

// New creates an empty world.
func New() *World {
	return &World{ids: NewObjectIDGenerator()}
}

// IDs returns the world's object ID generator.
func (w *World) IDs() *ObjectIDGenerator {
	return w.ids
}

// AddEntity registers e. Returns error if the object ID is taken.
func (w *World) AddEntity(e *Entity) error {
	if _, loaded := w.entities.LoadOrStore(e.ObjectID(), e); loaded {
		return fmt.Errorf("entity %d already exists", e.ObjectID())
	}
	w.entityCount.Add(1)
	return nil
}

// RemoveEntity removes the entity and every state attached to it.
func (w *World) RemoveEntity(objectID uint32) {
	if _, ok := w.entities.LoadAndDelete(objectID); !ok {
		return
	}
	w.entityCount.Add(-1)
	w.states.Delete(objectID)
}

// Entity returns entity by object ID.
func (w *World) Entity(objectID uint32) (*Entity, bool) {
	value, ok := w.entities.Load(objectID)
	if !ok {
		return nil, false
	}
	return value.(*Entity), true
}

// Entities returns every entity sorted by object ID.
func (w *World) Entities() []*Entity {
	out := make([]*Entity, 0, w.EntityCount())
	w.entities.Range(func(_, value any) bool {
		out = append(out, value.(*Entity))
		return true
	})
	slices.SortFunc(out, func(a, b *Entity) int { return cmp.Compare(a.ObjectID(), b.ObjectID()) })
	return out
}

// EntityCount returns number of registered entities.
func (w *World) EntityCount() int {
	return int(w.entityCount.Load())
}

// Load implements scale.Holder.
func (w *World) Load(e scale.Entity, c *scale.Category) (*scale.State, bool) {
	value, ok := w.states.Load(e.ObjectID())
	if !ok {
		return nil, false
	}
	es := value.(*entityStates)
	es.mu.RLock()
	defer es.mu.RUnlock()
	s, ok := es.byCategory[c.ID()]
	return s, ok
}

// LoadOrStore implements scale.Holder.
func (w *World) LoadOrStore(e scale.Entity, c *scale.Category, s *scale.State) (*scale.State, bool) {
	value, _ := w.states.LoadOrStore(e.ObjectID(), &entityStates{byCategory: make(map[string]*scale.State)})
	es := value.(*entityStates)
	es.mu.Lock()
	defer es.mu.Unlock()
	if existing, ok := es.byCategory[c.ID()]; ok {
		return existing, true
	}
	es.byCategory[c.ID()] = s
	return s, false
}

// States returns the states attached to the entity, sorted by category.
func (w *World) States(objectID uint32) []*scale.State {
	value, ok := w.states.Load(objectID)
	if !ok {
		return nil
	}
	out := value.(*entityStates).list()
	sortStates(out)
	return out
}

func (w *World) allStates() []*scale.State {
	var out []*scale.State
	w.states.Range(func(_, value any) bool {
		out = append(out, value.(*entityStates).list()...)
		return true
	})
	return out
}

// Track keeps composed scales coherent across categories: a change to any
// state of an entity drops the caches of that entity's other states, which
// may read it through category modifiers.
func (w *World) Track(categories ...*scale.Category) {
	for _, c := range categories {
		c.OnChange(w.invalidateSiblings)
	}
}

func (w *World) invalidateSiblings(s *scale.State) {
	e := s.Entity()
	if e == nil {
		return
	}
	for _, other := range w.States(e.ObjectID()) {
		if other != s {
			other.InvalidateCache()
		}
	}
}

// Tick advances every state by one step and ends the first-update phase of
// every entity. Returns the number of states ticked.
func (w *World) Tick() int {
	states := w.allStates()
	for _, s := range states {
		s.Tick()
	}
	w.entities.Range(func(_, value any) bool {
		value.(*Entity).MarkUpdated()
		return true
	})
	return len(states)
}

// Drain returns the states changed since the previous drain and clears
// their replication flags. Result is sorted by entity, then category.
func (w *World) Drain() []*scale.State {
	var out []*scale.State
	for _, e := range w.Entities() {
		if !e.takeSync() {
			continue
		}
		for _, s := range w.States(e.ObjectID()) {
			if s.Dirty() {
				out = append(out, s)
				s.MarkForSync(false)
			}
		}
	}
	return out
}

// Keyframe returns every state that differs from its category defaults,
// sorted by entity, then category.
func (w *World) Keyframe() []*scale.State {
	var out []*scale.State
	for _, s := range w.allStates() {
		if !s.IsReset() {
			out = append(out, s)
		}
	}
	sortStates(out)
	return out
}

// CopyScales copies every persistent state of source onto target through
// the persistent encoding, modifiers included. Categories whose source
// state is missing or reset are left alone. Returns the number copied.
func (w *World) CopyScales(target, source *Entity, res scale.Resolver) int {
	copied := 0
	for _, src := range w.States(source.ObjectID()) {
		if src.IsReset() || !src.ShouldPersist() {
			continue
		}
		rec := src.WriteTag(tag.NewCompound())
		dst := src.Category().StateFor(w, target)
		dst.ReadTag(rec, res)
		copied++
	}

	if copied > 0 {
		slog.Debug("copied scales", "source", source.ObjectID(), "target", target.ObjectID(), "categories", copied)
	}
	return copied
}

func sortStates(states []*scale.State) {
	slices.SortFunc(states, func(a, b *scale.State) int {
		var ai, bi uint32
		if e := a.Entity(); e != nil {
			ai = e.ObjectID()
		}
		if e := b.Entity(); e != nil {
			bi = e.ObjectID()
		}
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		return cmp.Compare(a.Category().ID(), b.Category().ID())
	})
}
