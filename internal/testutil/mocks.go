package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/udisondev/scalekit/internal/scale"
)

// MockEntity is an in-memory scale.Entity for unit tests.
type MockEntity struct {
	ID    uint32
	EKind scale.Kind
	ESide scale.Side
	First bool

	syncMarks atomic.Int32
}

// NewMockEntity returns an authoritative, already-updated entity.
func NewMockEntity(id uint32, kind scale.Kind) *MockEntity {
	return &MockEntity{ID: id, EKind: kind, ESide: scale.SideAuthoritative}
}

func (m *MockEntity) ObjectID() uint32 { return m.ID }
func (m *MockEntity) Kind() scale.Kind { return m.EKind }
func (m *MockEntity) Side() scale.Side { return m.ESide }
func (m *MockEntity) FirstUpdate() bool { return m.First }
func (m *MockEntity) MarkScalesForSync() { m.syncMarks.Add(1) }
func (m *MockEntity) SyncMarks() int32 { return m.syncMarks.Load() }
func (m *MockEntity) ResetSyncMarks() { m.syncMarks.Store(0) }

// CountingModifier multiplies by Factor and counts invocations.
type CountingModifier struct {
	Name   string
	Prio   int
	Factor float32

	calls     atomic.Int32
	prevCalls atomic.Int32
}

// NewCountingModifier creates a multiplying modifier.
func NewCountingModifier(id string, priority int, factor float32) *CountingModifier {
	return &CountingModifier{Name: id, Prio: priority, Factor: factor}
}

func (m *CountingModifier) ID() string { return m.Name }
func (m *CountingModifier) Priority() int { return m.Prio }

func (m *CountingModifier) ModifyScale(_ *scale.State, value, _ float32) float32 {
	m.calls.Add(1)
	return value * m.Factor
}

func (m *CountingModifier) ModifyPrevScale(_ *scale.State, value float32) float32 {
	m.prevCalls.Add(1)
	return value * m.Factor
}

// Calls returns how many times ModifyScale ran.
func (m *CountingModifier) Calls() int32 { return m.calls.Load() }

// PrevCalls returns how many times ModifyPrevScale ran.
func (m *CountingModifier) PrevCalls() int32 { return m.prevCalls.Load() }

// AddingModifier adds Offset; combined with CountingModifier it makes
// composition order observable.
type AddingModifier struct {
	Name   string
	Prio   int
	Offset float32
}

func (m *AddingModifier) ID() string { return m.Name }
func (m *AddingModifier) Priority() int { return m.Prio }

func (m *AddingModifier) ModifyScale(_ *scale.State, value, _ float32) float32 {
	return value + m.Offset
}

func (m *AddingModifier) ModifyPrevScale(_ *scale.State, value float32) float32 {
	return value + m.Offset
}

// MockResolver is a map-backed scale.Resolver.
type MockResolver struct {
	mu        sync.RWMutex
	modifiers map[string]scale.Modifier
	easings   map[string]*scale.Easing
}

// NewMockResolver registers the given modifiers and easings.
func NewMockResolver(ms []scale.Modifier, es ...*scale.Easing) *MockResolver {
	r := &MockResolver{
		modifiers: make(map[string]scale.Modifier),
		easings:   make(map[string]*scale.Easing),
	}
	for _, m := range ms {
		r.modifiers[m.ID()] = m
	}
	for _, e := range es {
		r.easings[e.ID()] = e
	}
	return r
}

func (r *MockResolver) Modifier(id string) (scale.Modifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modifiers[id]
	return m, ok
}

func (r *MockResolver) Easing(id string) (*scale.Easing, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.easings[id]
	return e, ok
}

// MapHolder is a minimal scale.Holder keyed by (entity id, category id).
type MapHolder struct {
	mu     sync.Mutex
	states map[[2]any]*scale.State
}

// NewMapHolder creates an empty holder.
func NewMapHolder() *MapHolder {
	return &MapHolder{states: make(map[[2]any]*scale.State)}
}

func (h *MapHolder) Load(e scale.Entity, c *scale.Category) (*scale.State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.states[[2]any{e.ObjectID(), c.ID()}]
	return s, ok
}

func (h *MapHolder) LoadOrStore(e scale.Entity, c *scale.Category, s *scale.State) (*scale.State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := [2]any{e.ObjectID(), c.ID()}
	if existing, ok := h.states[key]; ok {
		return existing, true
	}
	h.states[key] = s
	return s, false
}
