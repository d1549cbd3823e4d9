package scale

import (
	"cmp"
	"slices"
)

// Modifier transforms the base scale into the visible scale.
// Modifiers are applied in ascending Priority order; ties are broken by ID so
// the composition order is the same on every run.
type Modifier interface {
	ID() string
	Priority() int
	ModifyScale(s *State, value, delta float32) float32
	ModifyPrevScale(s *State, value float32) float32
}

func compareModifiers(a, b Modifier) int {
	if c := cmp.Compare(a.Priority(), b.Priority()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID(), b.ID())
}

// ModifierSet is a sorted set of modifiers, unique by (priority, id).
// The zero value is an empty set.
type ModifierSet struct {
	items []Modifier
}

// NewModifierSet builds a set from ms, dropping duplicates.
func NewModifierSet(ms ...Modifier) *ModifierSet {
	s := &ModifierSet{}
	for _, m := range ms {
		s.Add(m)
	}
	return s
}

// Add inserts m and reports whether membership changed.
func (s *ModifierSet) Add(m Modifier) bool {
	if m == nil {
		return false
	}
	i, found := slices.BinarySearchFunc(s.items, m, compareModifiers)
	if found {
		return false
	}
	s.items = slices.Insert(s.items, i, m)
	return true
}

// Remove deletes m and reports whether membership changed.
func (s *ModifierSet) Remove(m Modifier) bool {
	if m == nil {
		return false
	}
	i, found := slices.BinarySearchFunc(s.items, m, compareModifiers)
	if !found {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Contains reports membership.
func (s *ModifierSet) Contains(m Modifier) bool {
	if m == nil {
		return false
	}
	_, found := slices.BinarySearchFunc(s.items, m, compareModifiers)
	return found
}

// Len returns the number of modifiers.
func (s *ModifierSet) Len() int {
	return len(s.items)
}

// Slice returns a copy of the members in application order.
func (s *ModifierSet) Slice() []Modifier {
	return slices.Clone(s.items)
}

// IDs returns member identifiers in application order.
func (s *ModifierSet) IDs() []string {
	ids := make([]string, len(s.items))
	for i, m := range s.items {
		ids[i] = m.ID()
	}
	return ids
}

// Clear removes every member.
func (s *ModifierSet) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}

// Equal reports whether both sets hold the same members.
func (s *ModifierSet) Equal(other *ModifierSet) bool {
	return slices.EqualFunc(s.items, other.items, func(a, b Modifier) bool {
		return compareModifiers(a, b) == 0
	})
}

// resetTo replaces the contents with a copy of other.
func (s *ModifierSet) resetTo(other *ModifierSet) {
	s.Clear()
	s.items = append(s.items, other.items...)
}

// differenceOf replaces the contents with a − b.
func (s *ModifierSet) differenceOf(a, b *ModifierSet) {
	s.Clear()
	for _, m := range a.items {
		if !b.Contains(m) {
			s.items = append(s.items, m)
		}
	}
}
