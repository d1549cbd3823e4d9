package scale

import (
	"sync"
	"sync/atomic"
)

// ClampFunc limits a candidate base or target value for a state.
type ClampFunc func(s *State, v float32) float32

// Listener is notified synchronously whenever a state of the category changes.
type Listener func(s *State)

// CategoryConfig declares the defaults of a Category.
// Zero values get sensible defaults: base scale 1, linear easing, no clamping.
type CategoryConfig struct {
	ID                 string
	DefaultBaseScale   float32
	DefaultTickDelay   int32
	DefaultEasing      *Easing
	DefaultModifiers   []Modifier
	DefaultPersistence bool
	ClampBase          ClampFunc
	ClampTarget        ClampFunc
	AffectsDimensions  bool
}

// Category is the immutable descriptor shared by every State of one kind of
// scale (overall size, width, reach...).
type Category struct {
	id                 string
	defaultBaseScale   float32
	defaultTickDelay   int32
	defaultEasing      *Easing
	defaultModifiers   *ModifierSet
	defaultPersistence bool
	clampBase          ClampFunc
	clampTarget        ClampFunc
	affectsDimensions  bool

	listenersMu sync.Mutex
	listeners   atomic.Pointer[[]Listener]
}

// NewCategory builds a category from cfg.
func NewCategory(cfg CategoryConfig) *Category {
	c := &Category{
		id:                 cfg.ID,
		defaultBaseScale:   cfg.DefaultBaseScale,
		defaultTickDelay:   cfg.DefaultTickDelay,
		defaultEasing:      cfg.DefaultEasing,
		defaultModifiers:   NewModifierSet(cfg.DefaultModifiers...),
		defaultPersistence: cfg.DefaultPersistence,
		clampBase:          cfg.ClampBase,
		clampTarget:        cfg.ClampTarget,
		affectsDimensions:  cfg.AffectsDimensions,
	}
	if c.defaultBaseScale == 0 {
		c.defaultBaseScale = 1
	}
	if c.defaultEasing == nil {
		c.defaultEasing = Linear
	}
	return c
}

// ID returns the category identifier.
func (c *Category) ID() string { return c.id }

// DefaultBaseScale returns the value every ramp field starts from.
func (c *Category) DefaultBaseScale() float32 { return c.defaultBaseScale }

// DefaultTickDelay returns the default ramp duration in steps.
func (c *Category) DefaultTickDelay() int32 { return c.defaultTickDelay }

// DefaultEasing returns the curve used when a state has no override.
func (c *Category) DefaultEasing() *Easing { return c.defaultEasing }

// DefaultPersistence reports whether states persist when not overridden.
func (c *Category) DefaultPersistence() bool { return c.defaultPersistence }

// AffectsDimensions reports whether the category changes collision volume.
func (c *Category) AffectsDimensions() bool { return c.affectsDimensions }

// DefaultModifiers returns a copy of the default modifier set.
func (c *Category) DefaultModifiers() []Modifier { return c.defaultModifiers.Slice() }

// IsDefaultModifier reports whether m belongs to the default set.
func (c *Category) IsDefaultModifier(m Modifier) bool { return c.defaultModifiers.Contains(m) }

// ClampBaseScale applies the base clamp policy.
func (c *Category) ClampBaseScale(s *State, v float32) float32 {
	if c.clampBase == nil {
		return v
	}
	return c.clampBase(s, v)
}

// ClampTargetScale applies the target clamp policy.
func (c *Category) ClampTargetScale(s *State, v float32) float32 {
	if c.clampTarget == nil {
		return v
	}
	return c.clampTarget(s, v)
}

// OnChange registers a change listener.
func (c *Category) OnChange(l Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	var next []Listener
	if cur := c.listeners.Load(); cur != nil {
		next = append(next, *cur...)
	}
	next = append(next, l)
	c.listeners.Store(&next)
}

func (c *Category) fireChange(s *State) {
	ls := c.listeners.Load()
	if ls == nil {
		return
	}
	for _, l := range *ls {
		l(s)
	}
}

// StateFor returns the state registered for (e, c) in h, registering a fresh
// one if none exists. A nil entity or holder yields an unattached state owned
// by the caller.
func (c *Category) StateFor(h Holder, e Entity) *State {
	if e == nil || h == nil {
		return newState(c, nil)
	}
	if s, ok := h.Load(e, c); ok {
		return s
	}
	s, _ := h.LoadOrStore(e, c, newState(c, e))
	return s
}

// ClampRange returns a ClampFunc limiting values to [lo, hi].
// A zero bound is treated as unbounded on that side.
func ClampRange(lo, hi float32) ClampFunc {
	return func(_ *State, v float32) float32 {
		if lo != 0 && v < lo {
			return lo
		}
		if hi != 0 && v > hi {
			return hi
		}
		return v
	}
}
