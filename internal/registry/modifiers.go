package registry

import "github.com/udisondev/scalekit/internal/scale"

// MultiplyModifier scales the value by a constant factor.
type MultiplyModifier struct {
	id       string
	priority int
	factor   float32
}

// NewMultiplyModifier creates a constant-factor modifier.
func NewMultiplyModifier(id string, priority int, factor float32) *MultiplyModifier {
	return &MultiplyModifier{id: id, priority: priority, factor: factor}
}

func (m *MultiplyModifier) ID() string      { return m.id }
func (m *MultiplyModifier) Priority() int   { return m.priority }
func (m *MultiplyModifier) Factor() float32 { return m.factor }

func (m *MultiplyModifier) ModifyScale(_ *scale.State, value, _ float32) float32 {
	return value * m.factor
}

func (m *MultiplyModifier) ModifyPrevScale(_ *scale.State, value float32) float32 {
	return value * m.factor
}

// CategoryModifier multiplies the value by the composed scale of another
// category on the same entity. States without an entity, or of the source
// category itself, pass through unchanged.
type CategoryModifier struct {
	id       string
	priority int
	source   *scale.Category
	holder   scale.Holder
}

// NewCategoryModifier creates a modifier reading source states from h.
func NewCategoryModifier(id string, priority int, source *scale.Category, h scale.Holder) *CategoryModifier {
	return &CategoryModifier{id: id, priority: priority, source: source, holder: h}
}

func (m *CategoryModifier) ID() string              { return m.id }
func (m *CategoryModifier) Priority() int           { return m.priority }
func (m *CategoryModifier) Source() *scale.Category { return m.source }

func (m *CategoryModifier) ModifyScale(s *scale.State, value, delta float32) float32 {
	src, ok := m.sourceState(s)
	if !ok {
		return value
	}
	return value * src.Scale(delta)
}

func (m *CategoryModifier) ModifyPrevScale(s *scale.State, value float32) float32 {
	src, ok := m.sourceState(s)
	if !ok {
		return value
	}
	return value * src.PrevScale()
}

func (m *CategoryModifier) sourceState(s *scale.State) (*scale.State, bool) {
	e := s.Entity()
	if e == nil || m.holder == nil || s.Category() == m.source {
		return nil, false
	}
	return m.source.StateFor(m.holder, e), true
}
