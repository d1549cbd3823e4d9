package scale

import (
	"log/slog"

	"github.com/udisondev/scalekit/internal/tag"
)

// Persistent record keys.
const (
	KeyScale      = "scale"
	KeyPrevious   = "previous"
	KeyInitial    = "initial"
	KeyTarget     = "target"
	KeyTicks      = "ticks"
	KeyTotalTicks = "total_ticks"
	KeyPersistent = "persistent"
	KeyEasing     = "easing"
	KeyModifiers  = "baseValueModifiers"
	keyModifierID = "id"
)

// WriteTag stores every field that differs from its read-side default into c
// and returns it. A reset state writes nothing.
func (s *State) WriteTag(c tag.Compound) tag.Compound {
	if c == nil {
		c = tag.NewCompound()
	}
	cat := s.category
	def := cat.DefaultBaseScale()

	if s.baseScale != def {
		c.PutFloat(KeyScale, s.baseScale)
	}
	// Readers default these to the stored scale, so they are written only
	// when they differ from it.
	if s.prevBaseScale != s.baseScale {
		c.PutFloat(KeyPrevious, s.prevBaseScale)
	}
	if s.initialScale != s.baseScale {
		c.PutFloat(KeyInitial, s.initialScale)
	}
	if s.targetScale != s.baseScale {
		c.PutFloat(KeyTarget, s.targetScale)
	}
	if s.scaleTicks != 0 {
		c.PutInt(KeyTicks, s.scaleTicks)
	}
	if s.totalScaleTicks != cat.DefaultTickDelay() {
		c.PutInt(KeyTotalTicks, s.totalScaleTicks)
	}
	if s.persistent != nil {
		c.PutBool(KeyPersistent, *s.persistent)
	}
	if s.easing != nil {
		c.PutString(KeyEasing, s.easing.ID())
	}
	if s.nonDefaultModifiers.Len() != 0 {
		ids := s.nonDefaultModifiers.IDs()
		list := make(tag.List, len(ids))
		for i, id := range ids {
			list[i] = id
		}
		c.PutList(KeyModifiers, list)
	}

	return c
}

// ReadTag replaces the state with the record in c. Absent or wrong-typed
// fields take category defaults; unknown identifiers are dropped.
func (s *State) ReadTag(c tag.Compound, r Resolver) {
	cat := s.category

	s.baseScale = floatOr(c, KeyScale, cat.DefaultBaseScale())
	s.prevBaseScale = floatOr(c, KeyPrevious, s.baseScale)
	s.initialScale = floatOr(c, KeyInitial, s.baseScale)
	s.targetScale = floatOr(c, KeyTarget, s.baseScale)

	s.scaleTicks = intOr(c, KeyTicks, 0)
	s.totalScaleTicks = intOr(c, KeyTotalTicks, cat.DefaultTickDelay())

	s.persistent = nil
	if p, ok := c.Bool(KeyPersistent); ok {
		s.persistent = &p
	}

	s.easing = nil
	if id, ok := c.String(KeyEasing); ok {
		if e, ok := r.Easing(id); ok {
			s.easing = e
		} else {
			slog.Debug("dropping unknown scale easing", "id", id, "category", cat.ID())
		}
	}

	s.trackModifierChanges = false
	s.modifiers.resetTo(cat.defaultModifiers)
	if list, ok := c.List(KeyModifiers); ok {
		for _, el := range list {
			id, ok := modifierEntryID(el)
			if !ok {
				continue
			}
			m, ok := r.Modifier(id)
			if !ok {
				slog.Debug("dropping unknown scale modifier", "id", id, "category", cat.ID())
				continue
			}
			s.modifiers.Add(m)
		}
	}
	s.recomputeNonDefaultModifiers()
	s.trackModifierChanges = true

	s.OnUpdate()
}

// modifierEntryID accepts a bare identifier or a record with an "id" field.
func modifierEntryID(el any) (string, bool) {
	if id, ok := el.(string); ok {
		return id, true
	}
	if rec, ok := tag.AsCompound(el); ok {
		return rec.String(keyModifierID)
	}
	return "", false
}

func floatOr(c tag.Compound, key string, def float32) float32 {
	if v, ok := c.Float(key); ok {
		return v
	}
	return def
}

func intOr(c tag.Compound, key string, def int32) int32 {
	if v, ok := c.Int(key); ok {
		return v
	}
	return def
}
