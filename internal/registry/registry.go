// Package registry resolves easing, modifier and category identifiers.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/udisondev/scalekit/internal/config"
	"github.com/udisondev/scalekit/internal/scale"
)

// InvalidCategoryID names the fallback category returned for unknown ids.
const InvalidCategoryID = "scale:invalid"

var (
	ErrUnknownCategory = errors.New("unknown scale category")
	ErrUnknownModifier = errors.New("unknown scale modifier")
	ErrUnknownEasing   = errors.New("unknown scale easing")
	ErrDuplicateID     = errors.New("identifier already registered")
)

// Registry maps identifiers to easings, modifiers and categories.
// It is safe for concurrent use and implements scale.Resolver.
type Registry struct {
	mu         sync.RWMutex
	easings    map[string]*scale.Easing
	modifiers  map[string]scale.Modifier
	categories map[string]*scale.Category

	invalid *scale.Category
}

// New creates a registry preloaded with the builtin easings and the
// invalid fallback category.
func New() *Registry {
	r := &Registry{
		easings:    make(map[string]*scale.Easing),
		modifiers:  make(map[string]scale.Modifier),
		categories: make(map[string]*scale.Category),
		invalid:    scale.NewCategory(scale.CategoryConfig{ID: InvalidCategoryID, DefaultBaseScale: 1}),
	}
	for _, e := range Easings() {
		r.easings[e.ID()] = e
	}
	return r
}

// RegisterEasing adds e under its identifier.
func (r *Registry) RegisterEasing(e *scale.Easing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.easings[e.ID()]; ok {
		return fmt.Errorf("easing %s: %w", e.ID(), ErrDuplicateID)
	}
	r.easings[e.ID()] = e
	return nil
}

// RegisterModifier adds m under its identifier.
func (r *Registry) RegisterModifier(m scale.Modifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modifiers[m.ID()]; ok {
		return fmt.Errorf("modifier %s: %w", m.ID(), ErrDuplicateID)
	}
	r.modifiers[m.ID()] = m
	return nil
}

// RegisterCategory adds c under its identifier.
func (r *Registry) RegisterCategory(c *scale.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID() == InvalidCategoryID {
		return fmt.Errorf("category %s: %w", c.ID(), ErrDuplicateID)
	}
	if _, ok := r.categories[c.ID()]; ok {
		return fmt.Errorf("category %s: %w", c.ID(), ErrDuplicateID)
	}
	r.categories[c.ID()] = c
	return nil
}

// Easing returns the curve registered under id.
func (r *Registry) Easing(id string) (*scale.Easing, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.easings[id]
	return e, ok
}

// Modifier returns the modifier registered under id.
func (r *Registry) Modifier(id string) (scale.Modifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modifiers[id]
	return m, ok
}

// Category returns the category registered under id or ErrUnknownCategory.
func (r *Registry) Category(id string) (*scale.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", id, ErrUnknownCategory)
	}
	return c, nil
}

// CategoryOrInvalid returns the category registered under id, or the
// invalid fallback category.
func (r *Registry) CategoryOrInvalid(id string) *scale.Category {
	c, err := r.Category(id)
	if err != nil {
		return r.invalid
	}
	return c
}

// Invalid returns the fallback category.
func (r *Registry) Invalid() *scale.Category {
	return r.invalid
}

// Categories returns every registered category sorted by id.
func (r *Registry) Categories() []*scale.Category {
	r.mu.RLock()
	out := make([]*scale.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *scale.Category) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return out
}

// Apply registers the categories and modifiers declared in defs.
// Category modifiers resolve source states through h.
func (r *Registry) Apply(defs config.Definitions, h scale.Holder) error {
	if err := defs.Validate(); err != nil {
		return err
	}

	// Categories refer to modifiers by id and category modifiers refer to
	// categories, so modifiers are built lazily once their source exists.
	pending := make(map[string]config.ModifierDef, len(defs.Modifiers))
	for _, md := range defs.Modifiers {
		pending[md.ID] = md
	}
	built := make(map[string]*scale.Category, len(defs.Categories))

	var buildModifier func(id string, visiting map[string]bool) (scale.Modifier, error)
	var buildCategory func(cd config.CategoryDef, visiting map[string]bool) (*scale.Category, error)

	byID := make(map[string]config.CategoryDef, len(defs.Categories))
	for _, cd := range defs.Categories {
		byID[cd.ID] = cd
	}

	buildModifier = func(id string, visiting map[string]bool) (scale.Modifier, error) {
		if m, ok := r.Modifier(id); ok {
			return m, nil
		}
		md, ok := pending[id]
		if !ok {
			return nil, fmt.Errorf("modifier %s: %w", id, ErrUnknownModifier)
		}

		var m scale.Modifier
		switch md.Kind {
		case config.ModifierMultiply:
			m = NewMultiplyModifier(md.ID, md.Priority, md.Factor)
		case config.ModifierCategory:
			src, err := buildCategory(byID[md.Category], visiting)
			if err != nil {
				return nil, fmt.Errorf("modifier %s: %w", md.ID, err)
			}
			m = NewCategoryModifier(md.ID, md.Priority, src, h)
		}
		if err := r.RegisterModifier(m); err != nil {
			return nil, err
		}
		return m, nil
	}

	buildCategory = func(cd config.CategoryDef, visiting map[string]bool) (*scale.Category, error) {
		if c, ok := built[cd.ID]; ok {
			return c, nil
		}
		if visiting[cd.ID] {
			return nil, fmt.Errorf("category %s: modifier cycle", cd.ID)
		}
		visiting[cd.ID] = true
		defer delete(visiting, cd.ID)

		cfg := scale.CategoryConfig{
			ID:                 cd.ID,
			DefaultBaseScale:   cd.DefaultBaseScale,
			DefaultTickDelay:   cd.DefaultTickDelay,
			DefaultPersistence: cd.Persistent,
			AffectsDimensions:  cd.AffectsDimensions,
		}
		if cd.DefaultEasing != "" {
			e, ok := r.Easing(cd.DefaultEasing)
			if !ok {
				return nil, fmt.Errorf("category %s: easing %s: %w", cd.ID, cd.DefaultEasing, ErrUnknownEasing)
			}
			cfg.DefaultEasing = e
		}
		for _, id := range cd.DefaultModifiers {
			m, err := buildModifier(id, visiting)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cd.ID, err)
			}
			cfg.DefaultModifiers = append(cfg.DefaultModifiers, m)
		}
		if cd.MinScale != 0 || cd.MaxScale != 0 {
			clamp := scale.ClampRange(cd.MinScale, cd.MaxScale)
			cfg.ClampBase = clamp
			cfg.ClampTarget = clamp
		}

		c := scale.NewCategory(cfg)
		if err := r.RegisterCategory(c); err != nil {
			return nil, err
		}
		built[cd.ID] = c
		return c, nil
	}

	for _, cd := range defs.Categories {
		if _, err := buildCategory(cd, map[string]bool{}); err != nil {
			return err
		}
	}
	for _, md := range defs.Modifiers {
		if _, err := buildModifier(md.ID, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}
