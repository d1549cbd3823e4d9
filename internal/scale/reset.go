package scale

import "math"

// Reset restores every field and the modifier chain to category defaults.
func (s *State) Reset(notify bool) *State {
	c := s.category
	base := c.DefaultBaseScale()

	s.baseScale = base
	s.prevBaseScale = base
	s.initialScale = base
	s.targetScale = base
	s.scaleTicks = 0
	s.totalScaleTicks = c.DefaultTickDelay()
	s.persistent = nil
	s.easing = nil

	s.resetModifiers()

	if notify {
		s.OnUpdate()
	}
	return s
}

// IsReset reports whether the state equals its category defaults, in which
// case persistence and replication may omit it.
func (s *State) IsReset() bool {
	return s.HasDefaultValues()
}

// HasDefaultValues compares every field against category defaults.
func (s *State) HasDefaultValues() bool {
	c := s.category
	base := c.DefaultBaseScale()

	switch {
	case s.baseScale != base,
		s.prevBaseScale != base,
		s.initialScale != base,
		s.targetScale != base,
		s.scaleTicks != 0,
		s.totalScaleTicks != c.DefaultTickDelay(),
		s.nonDefaultModifiers.Len() != 0,
		s.persistent != nil,
		s.easing != nil:
		return false
	}
	return true
}

// FromScale copies the ramp fields, persistence and easing of other.
// The modifier chain is left untouched.
func (s *State) FromScale(other *State, notify bool) *State {
	if other != s {
		s.baseScale = other.baseScale
		s.prevBaseScale = other.prevBaseScale
		s.initialScale = other.initialScale
		s.targetScale = other.targetScale
		s.scaleTicks = other.scaleTicks
		s.totalScaleTicks = other.totalScaleTicks
		s.persistent = copyBool(other.persistent)
		s.easing = other.easing

		s.invalidateCachedScales()
	}

	if notify {
		s.OnUpdate()
	}
	return s
}

// AveragedFromScales sets every ramp field to the mean over s, first and
// rest. Tick counters are rounded half up.
func (s *State) AveragedFromScales(first *State, rest ...*State) *State {
	all := make([]*State, 0, len(rest)+2)
	all = append(all, s, first)
	all = append(all, rest...)

	var base, prev, initial, target, ticks, total float32
	for _, o := range all {
		base += o.baseScale
		prev += o.prevBaseScale
		initial += o.initialScale
		target += o.targetScale
		ticks += float32(o.scaleTicks)
		total += float32(o.totalScaleTicks)
	}

	count := float32(len(all))
	s.baseScale = base / count
	s.prevBaseScale = prev / count
	s.initialScale = initial / count
	s.targetScale = target / count
	s.scaleTicks = roundHalfUp(ticks / count)
	s.totalScaleTicks = roundHalfUp(total / count)

	s.OnUpdate()
	return s
}

// Equal reports bit-for-bit equality of every ramp field and of the
// composed scale.
func (s *State) Equal(other *State) bool {
	if s == other {
		return true
	}
	if other == nil {
		return false
	}

	return math.Float32bits(s.baseScale) == math.Float32bits(other.baseScale) &&
		math.Float32bits(s.prevBaseScale) == math.Float32bits(other.prevBaseScale) &&
		math.Float32bits(s.initialScale) == math.Float32bits(other.initialScale) &&
		math.Float32bits(s.targetScale) == math.Float32bits(other.targetScale) &&
		s.scaleTicks == other.scaleTicks &&
		s.totalScaleTicks == other.totalScaleTicks &&
		math.Float32bits(s.Scale(1)) == math.Float32bits(other.Scale(1))
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
