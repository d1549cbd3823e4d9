// Package scale implements per-entity scale state: a base value ramped over
// discrete simulation steps, composed through an ordered modifier chain.
//
// A State is driven by a single authoritative goroutine (Tick and all
// setters). Presentation readers on other goroutines use Snapshot.
package scale

import "math"

// State is the interpolation state of one category on one entity.
type State struct {
	category *Category
	entity   Entity

	baseScale       float32
	prevBaseScale   float32
	initialScale    float32
	targetScale     float32
	scaleTicks      int32
	totalScaleTicks int32
	persistent      *bool
	easing          *Easing

	dirty bool

	modifiers            *ModifierSet
	nonDefaultModifiers  *ModifierSet
	trackModifierChanges bool

	cachedScale        float32
	cachedPrevScale    float32
	hasCachedScale     bool
	hasCachedPrevScale bool
}

// NewState creates an unattached state defaulted from c. Attached states
// only come from Category.StateFor, so one exists per (entity, category).
func NewState(c *Category) *State {
	return newState(c, nil)
}

func newState(c *Category, e Entity) *State {
	base := c.DefaultBaseScale()
	s := &State{
		category:            c,
		entity:              e,
		baseScale:           base,
		prevBaseScale:       base,
		initialScale:        base,
		targetScale:         base,
		totalScaleTicks:     c.DefaultTickDelay(),
		modifiers:           &ModifierSet{},
		nonDefaultModifiers: &ModifierSet{},
	}
	s.modifiers.resetTo(c.defaultModifiers)
	s.trackModifierChanges = true
	return s
}

// Category returns the descriptor this state is defaulted from.
func (s *State) Category() *Category {
	return s.category
}

// Entity returns the attached entity, nil for unattached states.
func (s *State) Entity() Entity {
	return s.entity
}

// Tick advances the ramp by one simulation step.
func (s *State) Tick() {
	s.invalidateCachedScales()

	curr := s.baseScale
	target := s.targetScale

	if curr == target {
		if s.prevBaseScale != curr {
			s.prevBaseScale = curr
		}
		s.initialScale = target
		s.scaleTicks = 0
		return
	}

	if s.scaleTicks >= s.totalScaleTicks {
		s.finishRamp()
		return
	}

	s.scaleTicks++
	if s.scaleTicks >= s.totalScaleTicks {
		// Last step of the ramp lands exactly on target and settles.
		s.finishRamp()
		return
	}
	s.SetBaseScale(s.scaleForTick(s.scaleTicks, 0))
}

func (s *State) finishRamp() {
	s.initialScale = s.targetScale
	s.scaleTicks = 0
	s.SetBaseScale(s.targetScale)
}

func (s *State) currentEasing() *Easing {
	if s.easing != nil {
		return s.easing
	}
	return s.category.DefaultEasing()
}

func (s *State) scaleForTick(ticks int32, delta float32) float32 {
	return evaluate(s.initialScale, s.targetScale, s.totalScaleTicks, ticks, delta, s.currentEasing())
}

// BaseScale returns the value without modifiers. delta is the fraction of
// a step elapsed for rendering; 1 returns the stored value unchanged.
func (s *State) BaseScale(delta float32) float32 {
	if delta == 1 {
		return s.baseScale
	}
	return s.scaleForTick(s.scaleTicks, delta)
}

// SetBaseScale clamps v, remembers the previous value and notifies.
func (s *State) SetBaseScale(v float32) {
	v = s.category.ClampBaseScale(s, v)

	s.prevBaseScale = s.baseScale
	s.baseScale = v
	s.OnUpdate()
}

// Scale returns the base value folded through every modifier.
func (s *State) Scale(delta float32) float32 {
	canCache := s.canCache(delta)
	if canCache && s.hasCachedScale {
		return s.cachedScale
	}

	value := s.BaseScale(delta)
	for _, m := range s.modifiers.items {
		value = m.ModifyScale(s, value, delta)
	}

	if canCache {
		s.cachedScale = value
		s.hasCachedScale = true
	}
	return value
}

// PrevScale returns the previous base value folded through every modifier.
func (s *State) PrevScale() float32 {
	canCache := s.entity == nil || s.entity.Side() != SidePresentation
	if canCache && s.hasCachedPrevScale {
		return s.cachedPrevScale
	}

	value := s.prevBaseScale
	for _, m := range s.modifiers.items {
		value = m.ModifyPrevScale(s, value)
	}

	if canCache {
		s.cachedPrevScale = value
		s.hasCachedPrevScale = true
	}
	return value
}

func (s *State) canCache(delta float32) bool {
	if delta != 1 {
		return false
	}
	e := s.entity
	if e == nil || e.Side() != SideAuthoritative {
		return false
	}
	if e.Kind() == KindPlayer && s.category.AffectsDimensions() {
		return false
	}
	return !e.FirstUpdate()
}

// SetScale sets base and target at once, collapsing any ramp in flight.
func (s *State) SetScale(v float32) {
	s.SetBaseScale(v)
	s.SetTargetScale(v)
}

// PrevBaseScale returns the base value before the most recent change.
func (s *State) PrevBaseScale() float32 {
	return s.prevBaseScale
}

// InitialScale returns the value the current ramp started from.
func (s *State) InitialScale() float32 {
	return s.initialScale
}

// TargetScale returns the value the current ramp heads to.
func (s *State) TargetScale() float32 {
	return s.targetScale
}

// ScaleTicks returns the steps elapsed in the current ramp.
func (s *State) ScaleTicks() int32 {
	return s.scaleTicks
}

// SetTargetScale starts a ramp toward v. The tick counter is rescaled so
// the ramp keeps its current rate toward the new target.
func (s *State) SetTargetScale(v float32) {
	v = s.category.ClampTargetScale(s, v)

	s.scaleTicks = s.remainingScaleTicks()
	s.initialScale = s.targetScale
	s.targetScale = v

	s.invalidateCachedScales()
	s.MarkForSync(true)
}

func (s *State) remainingScaleTicks() int32 {
	lastTarget := s.targetScale
	initial := s.initialScale
	if lastTarget == initial {
		return 0
	}
	ratio := (lastTarget - s.baseScale) / (lastTarget - initial)
	return roundHalfUp(float32(s.totalScaleTicks) * ratio)
}

// ScaleTickDelay returns the ramp duration in steps.
func (s *State) ScaleTickDelay() int32 {
	return s.totalScaleTicks
}

// SetScaleTickDelay sets the ramp duration; 0 means instant.
func (s *State) SetScaleTickDelay(ticks int32) {
	s.totalScaleTicks = ticks
	s.invalidateCachedScales()
	s.MarkForSync(true)
}

// Persistence returns the override and whether one is set.
func (s *State) Persistence() (persistent bool, set bool) {
	if s.persistent == nil {
		return false, false
	}
	return *s.persistent, true
}

// SetPersistence overrides the category persistence default.
func (s *State) SetPersistence(persistent bool) {
	s.persistent = &persistent
	s.invalidateCachedScales()
	s.MarkForSync(true)
}

// ClearPersistence falls back to the category default.
func (s *State) ClearPersistence() {
	s.persistent = nil
	s.invalidateCachedScales()
	s.MarkForSync(true)
}

// ShouldPersist resolves the override against the category default.
func (s *State) ShouldPersist() bool {
	if s.persistent == nil {
		return s.category.DefaultPersistence()
	}
	return *s.persistent
}

// Easing returns the override curve, nil when the category default applies.
func (s *State) Easing() *Easing {
	return s.easing
}

// SetEasing overrides the ramp curve; nil restores the category default.
func (s *State) SetEasing(e *Easing) {
	s.easing = e
	s.invalidateCachedScales()
	s.MarkForSync(true)
}

// MarkForSync sets the replication flag. Only authoritative attached states
// take part in replication; others ignore the call.
func (s *State) MarkForSync(sync bool) {
	e := s.entity
	if e == nil || e.Side() != SideAuthoritative {
		return
	}
	s.dirty = sync
	if sync {
		e.MarkScalesForSync()
	}
}

// Dirty reports whether the state changed since it was last replicated.
func (s *State) Dirty() bool {
	return s.dirty
}

// OnUpdate is the single notification path for observable changes:
// caches are dropped, the state is marked for sync and listeners run.
func (s *State) OnUpdate() {
	s.invalidateCachedScales()
	s.MarkForSync(true)
	s.category.fireChange(s)
}

// Modifiers returns the modifier chain in application order.
func (s *State) Modifiers() []Modifier {
	return s.modifiers.Slice()
}

// NonDefaultModifiers returns the modifiers not in the category default set.
func (s *State) NonDefaultModifiers() []Modifier {
	return s.nonDefaultModifiers.Slice()
}

// HasModifier reports whether m is in the chain.
func (s *State) HasModifier(m Modifier) bool {
	return s.modifiers.Contains(m)
}

// AddModifier inserts m into the chain and reports whether it was added.
func (s *State) AddModifier(m Modifier) bool {
	changed := s.modifiers.Add(m)
	s.onModifiersChanged(changed)
	return changed
}

// RemoveModifier removes m from the chain and reports whether it was present.
func (s *State) RemoveModifier(m Modifier) bool {
	changed := s.modifiers.Remove(m)
	s.onModifiersChanged(changed)
	return changed
}

func (s *State) onModifiersChanged(changed bool) {
	if !changed {
		return
	}
	s.invalidateCachedScales()
	if s.trackModifierChanges {
		s.recomputeNonDefaultModifiers()
		s.OnUpdate()
	}
}

func (s *State) recomputeNonDefaultModifiers() {
	s.nonDefaultModifiers.differenceOf(s.modifiers, s.category.defaultModifiers)
}

// resetModifiers restores the default chain without notifying.
func (s *State) resetModifiers() {
	s.trackModifierChanges = false
	s.modifiers.resetTo(s.category.defaultModifiers)
	s.nonDefaultModifiers.Clear()
	s.invalidateCachedScales()
	s.trackModifierChanges = true
}

// InvalidateCache drops the cached composed values. Hosts call it when a
// modifier reads external input that changed.
func (s *State) InvalidateCache() {
	s.invalidateCachedScales()
}

func (s *State) invalidateCachedScales() {
	s.hasCachedScale = false
	s.hasCachedPrevScale = false
}

// roundHalfUp rounds to the nearest integer, ties toward positive infinity.
func roundHalfUp(v float32) int32 {
	return int32(math.Floor(float64(v) + 0.5))
}
