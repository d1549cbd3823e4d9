package scale

import (
	"fmt"
	"log/slog"

	"github.com/udisondev/scalekit/internal/packet"
)

// Persistence byte on the wire.
const (
	wirePersistUnset int8 = -1
	wirePersistFalse int8 = 0
	wirePersistTrue  int8 = 1
)

// WriteWire appends the replication encoding of s to w.
// Only non-default modifiers are written; receivers add the category defaults.
func (s *State) WriteWire(w *packet.Writer) {
	w.WriteFloat(s.baseScale)
	w.WriteFloat(s.prevBaseScale)
	w.WriteFloat(s.initialScale)
	w.WriteFloat(s.targetScale)
	w.WriteInt(s.scaleTicks)
	w.WriteInt(s.totalScaleTicks)

	w.WriteInt(int32(s.nonDefaultModifiers.Len()))
	for _, m := range s.nonDefaultModifiers.items {
		w.WriteString(m.ID())
	}

	switch {
	case s.persistent == nil:
		w.WriteInt8(wirePersistUnset)
	case *s.persistent:
		w.WriteInt8(wirePersistTrue)
	default:
		w.WriteInt8(wirePersistFalse)
	}

	w.WriteBool(s.easing != nil)
	if s.easing != nil {
		w.WriteString(s.easing.ID())
	}
}

type wireFields struct {
	base, prev, initial, target float32
	ticks, total                int32
	modifierIDs                 []string
	persist                     int8
	easingID                    string
	hasEasing                   bool
}

// ReadWire replaces the state with an encoding produced by WriteWire.
// The state is left untouched if the payload is truncated.
func (s *State) ReadWire(r *packet.Reader, res Resolver) error {
	f, err := readWireFields(r)
	if err != nil {
		return fmt.Errorf("reading %s scale: %w", s.category.ID(), err)
	}

	s.baseScale = f.base
	s.prevBaseScale = f.prev
	s.initialScale = f.initial
	s.targetScale = f.target
	s.scaleTicks = f.ticks
	s.totalScaleTicks = f.total

	switch f.persist {
	case wirePersistUnset:
		s.persistent = nil
	default:
		p := f.persist == wirePersistTrue
		s.persistent = &p
	}

	s.easing = nil
	if f.hasEasing {
		if e, ok := res.Easing(f.easingID); ok {
			s.easing = e
		} else {
			slog.Debug("dropping unknown scale easing", "id", f.easingID, "category", s.category.ID())
		}
	}

	s.trackModifierChanges = false
	s.modifiers.resetTo(s.category.defaultModifiers)
	for _, id := range f.modifierIDs {
		m, ok := res.Modifier(id)
		if !ok {
			slog.Debug("dropping unknown scale modifier", "id", id, "category", s.category.ID())
			continue
		}
		s.modifiers.Add(m)
	}
	s.recomputeNonDefaultModifiers()
	s.trackModifierChanges = true

	s.OnUpdate()
	return nil
}

func readWireFields(r *packet.Reader) (wireFields, error) {
	var f wireFields
	var err error

	floats := []*float32{&f.base, &f.prev, &f.initial, &f.target}
	for _, dst := range floats {
		if *dst, err = r.ReadFloat(); err != nil {
			return f, err
		}
	}
	if f.ticks, err = r.ReadInt(); err != nil {
		return f, err
	}
	if f.total, err = r.ReadInt(); err != nil {
		return f, err
	}

	count, err := r.ReadInt()
	if err != nil {
		return f, err
	}
	if count < 0 || int(count) > r.Remaining()/2 {
		return f, fmt.Errorf("invalid modifier count %d", count)
	}
	f.modifierIDs = make([]string, 0, count)
	for range count {
		id, err := r.ReadString()
		if err != nil {
			return f, err
		}
		f.modifierIDs = append(f.modifierIDs, id)
	}

	if f.persist, err = r.ReadInt8(); err != nil {
		return f, err
	}
	if f.hasEasing, err = r.ReadBool(); err != nil {
		return f, err
	}
	if f.hasEasing {
		if f.easingID, err = r.ReadString(); err != nil {
			return f, err
		}
	}
	return f, nil
}
