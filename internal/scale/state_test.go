package scale_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/scalekit/internal/scale"
	"github.com/udisondev/scalekit/internal/testutil"
)

func newTestCategory(t *testing.T, defaults ...scale.Modifier) *scale.Category {
	t.Helper()
	return scale.NewCategory(scale.CategoryConfig{
		ID:               "scale:test",
		DefaultBaseScale: 1,
		DefaultTickDelay: 20,
		DefaultModifiers: defaults,
	})
}

func newAttachedState(t *testing.T, c *scale.Category) (*scale.State, *testutil.MockEntity) {
	t.Helper()
	e := testutil.NewMockEntity(1, "npc")
	return c.StateFor(testutil.NewMapHolder(), e), e
}

func TestNewState_Defaults(t *testing.T) {
	def := testutil.NewCountingModifier("scale:def", 0, 1)
	c := newTestCategory(t, def)
	s := scale.NewState(c)

	assert.Equal(t, float32(1), s.BaseScale(1))
	assert.Equal(t, float32(1), s.PrevBaseScale())
	assert.Equal(t, float32(1), s.InitialScale())
	assert.Equal(t, float32(1), s.TargetScale())
	assert.Equal(t, int32(0), s.ScaleTicks())
	assert.Equal(t, int32(20), s.ScaleTickDelay())
	assert.True(t, s.HasModifier(def))
	assert.Empty(t, s.NonDefaultModifiers())
	assert.True(t, s.IsReset())
	assert.False(t, s.Dirty())
}

func TestTick_RampReachesTargetAfterDelay(t *testing.T) {
	for _, n := range []int32{1, 5, 20, 37} {
		c := scale.NewCategory(scale.CategoryConfig{ID: "scale:test", DefaultBaseScale: 1, DefaultTickDelay: n})
		s := scale.NewState(c)

		s.SetTargetScale(3)
		for range n {
			s.Tick()
		}

		assert.Equal(t, float32(3), s.BaseScale(1), "delay %d", n)
		assert.Equal(t, int32(0), s.ScaleTicks(), "delay %d", n)
	}
}

func TestTick_ConcreteRetargetScenario(t *testing.T) {
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.SetTargetScale(2)
	for range 20 {
		s.Tick()
	}
	require.Equal(t, float32(2), s.BaseScale(1))

	s.SetTargetScale(3)
	for range 10 {
		s.Tick()
	}
	assert.Equal(t, float32(2.5), s.BaseScale(1))
}

func TestTick_IntermediateValuesAndPrev(t *testing.T) {
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.SetTargetScale(2)
	s.Tick()
	assert.Equal(t, float32(1.05), s.BaseScale(1))
	assert.Equal(t, float32(1), s.PrevBaseScale())
	assert.Equal(t, int32(1), s.ScaleTicks())

	s.Tick()
	assert.Equal(t, float32(1.1), s.BaseScale(1))
	assert.Equal(t, float32(1.05), s.PrevBaseScale())
}

func TestTick_IdleReconcilesPrev(t *testing.T) {
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.SetScale(4)
	require.Equal(t, float32(1), s.PrevBaseScale())

	s.Tick()
	assert.Equal(t, float32(4), s.PrevBaseScale())
	assert.Equal(t, float32(4), s.InitialScale())
	assert.Equal(t, int32(0), s.ScaleTicks())
}

func TestTick_ZeroDelayIsInstant(t *testing.T) {
	c := scale.NewCategory(scale.CategoryConfig{ID: "scale:test", DefaultTickDelay: 0})
	s := scale.NewState(c)

	s.SetTargetScale(5)
	s.Tick()

	assert.Equal(t, float32(5), s.BaseScale(1))
	assert.Equal(t, float32(5), s.InitialScale())
}

func TestTick_ShrunkDelayFinishesImmediately(t *testing.T) {
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.SetTargetScale(2)
	for range 10 {
		s.Tick()
	}
	s.SetScaleTickDelay(5)
	s.Tick()

	assert.Equal(t, float32(2), s.BaseScale(1))
	assert.Equal(t, int32(0), s.ScaleTicks())
}

func TestBaseScale_FractionalDeltaIsPure(t *testing.T) {
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.SetTargetScale(2)
	s.Tick()

	before := s.Snapshot()
	half := s.BaseScale(0.5)

	assert.Equal(t, float32(1.075), half)
	assert.Equal(t, before, s.Snapshot(), "fractional read must not mutate")
}

func TestSetTargetScale_PreservesCurrentValue(t *testing.T) {
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.SetTargetScale(2)
	for range 7 {
		s.Tick()
	}

	before := s.BaseScale(1)
	s.SetTargetScale(0.5)
	assert.Equal(t, before, s.BaseScale(1))

	// remaining = round(20 * (2 - 1.35) / (2 - 1)) = 13
	assert.Equal(t, int32(13), s.ScaleTicks())
	assert.Equal(t, float32(2), s.InitialScale())
	assert.Equal(t, float32(0.5), s.TargetScale())
}

func TestClampPolicies(t *testing.T) {
	c := scale.NewCategory(scale.CategoryConfig{
		ID:          "scale:clamped",
		ClampBase:   scale.ClampRange(0.5, 4),
		ClampTarget: scale.ClampRange(0.25, 2),
	})
	s := scale.NewState(c)

	s.SetBaseScale(10)
	assert.Equal(t, float32(4), s.BaseScale(1))

	s.SetTargetScale(10)
	assert.Equal(t, float32(2), s.TargetScale())

	s.SetTargetScale(0.01)
	assert.Equal(t, float32(0.25), s.TargetScale())
}

func TestSetScale_CollapsesRamp(t *testing.T) {
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.SetTargetScale(3)
	s.Tick()
	s.SetScale(0.5)
	s.Tick()

	assert.Equal(t, float32(0.5), s.BaseScale(1))
	assert.Equal(t, float32(0.5), s.TargetScale())
	assert.Equal(t, int32(0), s.ScaleTicks())
}

func TestScale_ModifiersApplyInPriorityOrder(t *testing.T) {
	add := &testutil.AddingModifier{Name: "scale:add", Prio: 10, Offset: 1}
	mul := testutil.NewCountingModifier("scale:mul", 5, 3)
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.AddModifier(add)
	s.AddModifier(mul)
	s.SetScale(2)

	// (2 * 3) + 1
	assert.Equal(t, float32(7), s.Scale(1))
	assert.Equal(t, []string{"scale:mul", "scale:add"}, ids(s.Modifiers()))
}

func TestScale_EqualPriorityOrderedByID(t *testing.T) {
	b := &testutil.AddingModifier{Name: "scale:b", Prio: 1, Offset: 1}
	a := testutil.NewCountingModifier("scale:a", 1, 2)
	c := newTestCategory(t)
	s := scale.NewState(c)

	s.AddModifier(b)
	s.AddModifier(a)

	assert.Equal(t, []string{"scale:a", "scale:b"}, ids(s.Modifiers()))
	assert.Equal(t, float32(3), s.Scale(1))
}

func TestScale_CachesOnAuthoritativeSide(t *testing.T) {
	mod := testutil.NewCountingModifier("scale:count", 0, 2)
	c := newTestCategory(t, mod)
	s, _ := newAttachedState(t, c)

	first := s.Scale(1)
	second := s.Scale(1)

	assert.Equal(t, float32(2), first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), mod.Calls(), "second read must come from cache")

	s.Tick()
	s.Scale(1)
	assert.Equal(t, int32(2), mod.Calls(), "tick invalidates cache")
}

func TestScale_CacheGate(t *testing.T) {
	tests := []struct {
		name    string
		entity  func() scale.Entity
		affects bool
		delta   float32
	}{
		{"fractional delta", func() scale.Entity { return testutil.NewMockEntity(1, "npc") }, false, 0.5},
		{"unattached", func() scale.Entity { return nil }, false, 1},
		{"presentation side", func() scale.Entity {
			e := testutil.NewMockEntity(1, "npc")
			e.ESide = scale.SidePresentation
			return e
		}, false, 1},
		{"detached entity", func() scale.Entity {
			e := testutil.NewMockEntity(1, "npc")
			e.ESide = scale.SideDetached
			return e
		}, false, 1},
		{"first update", func() scale.Entity {
			e := testutil.NewMockEntity(1, "npc")
			e.First = true
			return e
		}, false, 1},
		{"player with dimension category", func() scale.Entity { return testutil.NewMockEntity(1, scale.KindPlayer) }, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := testutil.NewCountingModifier("scale:count", 0, 2)
			c := scale.NewCategory(scale.CategoryConfig{
				ID:                "scale:test",
				DefaultTickDelay:  20,
				DefaultModifiers:  []scale.Modifier{mod},
				AffectsDimensions: tt.affects,
			})
			s := c.StateFor(testutil.NewMapHolder(), tt.entity())

			s.Scale(tt.delta)
			s.Scale(tt.delta)

			assert.Equal(t, int32(2), mod.Calls())
		})
	}
}

func TestScale_PlayerCachesForNonDimensionCategory(t *testing.T) {
	mod := testutil.NewCountingModifier("scale:count", 0, 2)
	c := newTestCategory(t, mod)
	s := c.StateFor(testutil.NewMapHolder(), testutil.NewMockEntity(1, scale.KindPlayer))

	s.Scale(1)
	s.Scale(1)

	assert.Equal(t, int32(1), mod.Calls())
}

func TestPrevScale_Cached(t *testing.T) {
	mod := testutil.NewCountingModifier("scale:count", 0, 2)
	c := newTestCategory(t, mod)
	s := scale.NewState(c)

	s.SetScale(3)
	assert.Equal(t, float32(2), s.PrevScale())
	assert.Equal(t, float32(2), s.PrevScale())
	assert.Equal(t, int32(1), mod.PrevCalls())

	s.Tick()
	assert.Equal(t, float32(6), s.PrevScale())
	assert.Equal(t, int32(2), mod.PrevCalls())
}

func TestModifierMutationInvalidatesCache(t *testing.T) {
	extra := testutil.NewCountingModifier("scale:extra", 0, 3)
	c := newTestCategory(t)
	s, _ := newAttachedState(t, c)

	assert.Equal(t, float32(1), s.Scale(1))
	require.True(t, s.AddModifier(extra))
	assert.Equal(t, float32(3), s.Scale(1))
	require.True(t, s.RemoveModifier(extra))
	assert.Equal(t, float32(1), s.Scale(1))

	assert.False(t, s.RemoveModifier(extra), "removing twice reports no change")
}

func TestNonDefaultModifiers_TracksDifference(t *testing.T) {
	a := testutil.NewCountingModifier("scale:a", 0, 1)
	b := testutil.NewCountingModifier("scale:b", 1, 1)
	x := testutil.NewCountingModifier("scale:x", 2, 1)
	y := testutil.NewCountingModifier("scale:y", 3, 1)
	pool := []scale.Modifier{a, b, x, y}

	c := newTestCategory(t, a, b)
	s := scale.NewState(c)

	// Deterministic pseudo-random add/remove sequence.
	seed := uint32(7)
	for step := range 500 {
		seed = seed*1664525 + 1013904223
		m := pool[seed>>8%uint32(len(pool))]
		if seed>>16%2 == 0 {
			s.AddModifier(m)
		} else {
			s.RemoveModifier(m)
		}

		var want []string
		for _, cur := range s.Modifiers() {
			if !c.IsDefaultModifier(cur) {
				want = append(want, cur.ID())
			}
		}
		require.Equal(t, want, ids(s.NonDefaultModifiers()), "step %d", step)
	}
}

func TestDirty_OnlyAuthoritative(t *testing.T) {
	c := newTestCategory(t)

	auth, e := newAttachedState(t, c)
	auth.SetTargetScale(2)
	assert.True(t, auth.Dirty())
	assert.Equal(t, int32(1), e.SyncMarks())

	auth.MarkForSync(false)
	assert.False(t, auth.Dirty())

	pe := testutil.NewMockEntity(2, "npc")
	pe.ESide = scale.SidePresentation
	pres := c.StateFor(testutil.NewMapHolder(), pe)
	pres.SetTargetScale(2)
	assert.False(t, pres.Dirty())
	assert.Equal(t, int32(0), pe.SyncMarks())

	anon := scale.NewState(c)
	anon.SetScale(2)
	assert.False(t, anon.Dirty())
}

func TestOnChange_ListenersNotified(t *testing.T) {
	c := newTestCategory(t)
	var seen []*scale.State
	c.OnChange(func(s *scale.State) { seen = append(seen, s) })

	s := scale.NewState(c)
	s.SetBaseScale(2)
	s.AddModifier(testutil.NewCountingModifier("scale:x", 0, 1))

	require.Len(t, seen, 2)
	assert.Same(t, s, seen[0])
}

func TestStateFor_Idempotent(t *testing.T) {
	c := newTestCategory(t)
	other := scale.NewCategory(scale.CategoryConfig{ID: "scale:other"})
	h := testutil.NewMapHolder()
	e := testutil.NewMockEntity(9, "npc")

	first := c.StateFor(h, e)
	second := c.StateFor(h, e)
	third := other.StateFor(h, e)

	assert.Same(t, first, second)
	assert.NotSame(t, first, third)
	assert.Nil(t, c.StateFor(h, nil).Entity())
	assert.NotSame(t, c.StateFor(h, nil), c.StateFor(h, nil), "unattached states are never shared")
}

func TestStateFor_OnlyAttachedConstructor(t *testing.T) {
	c := newTestCategory(t)
	e := testutil.NewMockEntity(9, "npc")

	assert.Nil(t, scale.NewState(c).Entity())
	assert.Nil(t, c.StateFor(nil, e).Entity(), "no holder, no attachment")

	h := testutil.NewMapHolder()
	attached := c.StateFor(h, e)
	assert.Same(t, e, attached.Entity())
	got, ok := h.Load(e, c)
	require.True(t, ok)
	assert.Same(t, attached, got)
}

func TestSnapshot_BaseScaleAtMatchesState(t *testing.T) {
	easeIn := scale.NewEasing("scale:test_in", func(x float32) float32 { return x * x * x })
	c := scale.NewCategory(scale.CategoryConfig{
		ID:               "scale:test",
		DefaultBaseScale: 1,
		DefaultTickDelay: 8,
		DefaultEasing:    easeIn,
	})
	s := scale.NewState(c)
	s.SetTargetScale(3)

	for step := 0; step < 5; step++ {
		s.Tick()
		sn := s.Snapshot()
		for _, d := range []float32{0, 0.25, 0.5, 0.75, 0.999} {
			assert.Equal(t, s.BaseScale(d), sn.BaseScaleAt(d), "step %d delta %v", step, d)
		}
		assert.Equal(t, s.BaseScale(1), sn.BaseScaleAt(1))
		assert.Equal(t, sn.BaseScale, sn.BaseScaleAt(1))
	}

	sn := s.Snapshot()
	linear := (sn.TargetScale-sn.InitialScale)*(float32(sn.ScaleTicks)+0.5)/float32(sn.TotalScaleTicks) + sn.InitialScale
	assert.Less(t, sn.BaseScaleAt(0.5), linear, "cubic ease-in lags the linear ramp")
}

func TestSnapshot_Lerp(t *testing.T) {
	c := newTestCategory(t)
	s := scale.NewState(c)
	s.SetScaleTickDelay(4)
	s.SetTargetScale(2)
	s.Tick()

	sn := s.Snapshot()
	require.NotEqual(t, sn.PrevScale, sn.Scale)
	assert.Equal(t, sn.PrevScale, sn.Lerp(0))
	assert.Equal(t, sn.Scale, sn.Lerp(1))
	assert.InDelta(t, (sn.PrevScale+sn.Scale)/2, sn.Lerp(0.5), 1e-6)
}

func TestModifierSet_MembershipAndEqual(t *testing.T) {
	a := testutil.NewCountingModifier("scale:a", 0, 1)
	b := testutil.NewCountingModifier("scale:b", 0, 1)
	first := testutil.NewCountingModifier("scale:z", -5, 1)

	set := scale.NewModifierSet(b, a, b)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"scale:a", "scale:b"}, set.IDs())

	assert.True(t, set.Add(first))
	assert.False(t, set.Add(first))
	assert.Equal(t, []string{"scale:z", "scale:a", "scale:b"}, set.IDs())

	other := scale.NewModifierSet(a, first, b)
	assert.True(t, set.Equal(other))

	assert.True(t, other.Remove(b))
	assert.False(t, other.Remove(b))
	assert.False(t, set.Equal(other))
	assert.False(t, other.Contains(b))
}

func ids(ms []scale.Modifier) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.ID())
	}
	return out
}
