package scale_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/scalekit/internal/packet"
	"github.com/udisondev/scalekit/internal/scale"
	"github.com/udisondev/scalekit/internal/tag"
	"github.com/udisondev/scalekit/internal/testutil"
)

type codecFixture struct {
	category *scale.Category
	def      *testutil.CountingModifier
	extra    *testutil.CountingModifier
	quad     *scale.Easing
	resolver *testutil.MockResolver
}

func newCodecFixture(t *testing.T) codecFixture {
	t.Helper()
	def := testutil.NewCountingModifier("scale:default", 0, 1)
	extra := testutil.NewCountingModifier("scale:extra", 5, 2)
	quad := scale.NewEasing("scale:quad", func(x float32) float32 { return x * x })
	return codecFixture{
		category: newTestCategory(t, def),
		def:      def,
		extra:    extra,
		quad:     quad,
		resolver: testutil.NewMockResolver([]scale.Modifier{def, extra}, quad),
	}
}

// midRamp builds a state where every field differs from its default.
func (f codecFixture) midRamp() *scale.State {
	s := scale.NewState(f.category)
	s.SetScaleTickDelay(40)
	s.SetEasing(f.quad)
	s.SetPersistence(true)
	s.AddModifier(f.extra)
	s.SetTargetScale(2)
	for range 5 {
		s.Tick()
	}
	return s
}

func assertSameState(t *testing.T, want, got *scale.State) {
	t.Helper()
	assert.True(t, want.Equal(got), "states differ")
	assert.Equal(t, want.PrevBaseScale(), got.PrevBaseScale())
	assert.Equal(t, want.InitialScale(), got.InitialScale())
	assert.Equal(t, want.ScaleTicks(), got.ScaleTicks())
	assert.Equal(t, want.ScaleTickDelay(), got.ScaleTickDelay())
	assert.Equal(t, want.Easing(), got.Easing())
	wp, wset := want.Persistence()
	gp, gset := got.Persistence()
	assert.Equal(t, wset, gset)
	assert.Equal(t, wp, gp)
	assert.True(t, scale.NewModifierSet(want.Modifiers()...).Equal(scale.NewModifierSet(got.Modifiers()...)),
		"modifiers %v != %v", ids(want.Modifiers()), ids(got.Modifiers()))
	assert.Equal(t, ids(want.NonDefaultModifiers()), ids(got.NonDefaultModifiers()))
}

func TestWriteTag_ResetStateIsEmpty(t *testing.T) {
	f := newCodecFixture(t)
	s := scale.NewState(f.category)

	rec := s.WriteTag(nil)
	assert.Equal(t, 0, rec.Len())

	fresh := scale.NewState(f.category)
	fresh.SetScale(3)
	fresh.ReadTag(rec, f.resolver)
	assert.True(t, fresh.IsReset())
}

func TestWriteTag_RoundTrip(t *testing.T) {
	f := newCodecFixture(t)
	s := f.midRamp()

	rec := s.WriteTag(tag.NewCompound())
	for _, key := range []string{
		scale.KeyScale, scale.KeyPrevious, scale.KeyInitial, scale.KeyTarget, scale.KeyTicks,
		scale.KeyTotalTicks, scale.KeyPersistent, scale.KeyEasing, scale.KeyModifiers,
	} {
		assert.True(t, rec.Contains(key), "missing %s", key)
	}

	got := scale.NewState(f.category)
	got.ReadTag(rec, f.resolver)

	assertSameState(t, s, got)
}

func TestWriteTag_SettledScaleIsCompact(t *testing.T) {
	f := newCodecFixture(t)
	s := scale.NewState(f.category)
	s.SetScale(2)
	s.Tick()

	rec := s.WriteTag(nil)
	assert.Equal(t, tag.Compound{scale.KeyScale: float32(2)}, rec)

	got := scale.NewState(f.category)
	got.ReadTag(rec, f.resolver)
	assertSameState(t, s, got)
}

func TestWriteTag_InitialAtDefaultStillRoundTrips(t *testing.T) {
	f := newCodecFixture(t)
	s := scale.NewState(f.category)
	s.SetScale(2) // initial stays at the category default of 1

	got := scale.NewState(f.category)
	got.ReadTag(s.WriteTag(nil), f.resolver)

	assert.Equal(t, float32(1), got.InitialScale())
	assertSameState(t, s, got)
}

func TestWriteTag_OnlyNonDefaultModifiersWritten(t *testing.T) {
	f := newCodecFixture(t)
	s := scale.NewState(f.category)
	s.AddModifier(f.extra)

	rec := s.WriteTag(nil)
	list, ok := rec.List(scale.KeyModifiers)
	require.True(t, ok)
	assert.Equal(t, tag.List{"scale:extra"}, list)
}

func TestReadTag_CascadingDefaults(t *testing.T) {
	f := newCodecFixture(t)
	s := scale.NewState(f.category)

	s.ReadTag(tag.Compound{scale.KeyScale: 3}, f.resolver)

	assert.Equal(t, float32(3), s.BaseScale(1))
	assert.Equal(t, float32(3), s.PrevBaseScale())
	assert.Equal(t, float32(3), s.InitialScale())
	assert.Equal(t, float32(3), s.TargetScale())
	assert.Equal(t, int32(0), s.ScaleTicks())
	assert.Equal(t, int32(20), s.ScaleTickDelay())
	_, set := s.Persistence()
	assert.False(t, set)
	assert.Nil(t, s.Easing())
}

func TestReadTag_ToleratesUnknownAndMalformed(t *testing.T) {
	f := newCodecFixture(t)
	s := scale.NewState(f.category)

	s.ReadTag(tag.Compound{
		scale.KeyScale:      "huge",
		scale.KeyTotalTicks: []any{1},
		scale.KeyEasing:     "scale:unknown",
		scale.KeyModifiers: []any{
			"scale:missing",
			map[string]any{"id": "scale:extra"},
			42,
			map[string]any{"name": "no id"},
		},
	}, f.resolver)

	assert.Equal(t, float32(1), s.BaseScale(1))
	assert.Equal(t, int32(20), s.ScaleTickDelay())
	assert.Nil(t, s.Easing())
	assert.Equal(t, []string{"scale:default", "scale:extra"}, ids(s.Modifiers()))
	assert.Equal(t, []string{"scale:extra"}, ids(s.NonDefaultModifiers()))
}

func TestReadTag_RestoresDefaultModifiers(t *testing.T) {
	f := newCodecFixture(t)
	s := scale.NewState(f.category)
	s.RemoveModifier(f.def)
	require.False(t, s.HasModifier(f.def))

	s.ReadTag(tag.NewCompound(), f.resolver)

	assert.True(t, s.HasModifier(f.def))
	assert.True(t, s.IsReset())
}

func TestWire_RoundTrip(t *testing.T) {
	f := newCodecFixture(t)
	s := f.midRamp()

	w := packet.NewWriter(64)
	s.WriteWire(w)

	pe := testutil.NewMockEntity(1, "npc")
	pe.ESide = scale.SidePresentation
	got := f.category.StateFor(testutil.NewMapHolder(), pe)
	require.NoError(t, got.ReadWire(packet.NewReader(w.Bytes()), f.resolver))

	assertSameState(t, s, got)
	assert.False(t, got.Dirty(), "presentation replicas never raise the replication flag")
}

func TestWire_FieldLayout(t *testing.T) {
	f := newCodecFixture(t)
	s := scale.NewState(f.category)
	s.AddModifier(f.extra)
	s.SetPersistence(false)

	w := packet.NewWriter(64)
	s.WriteWire(w)

	r := packet.NewReader(w.Bytes())
	for range 4 {
		v, err := r.ReadFloat()
		require.NoError(t, err)
		assert.Equal(t, float32(1), v)
	}
	ticks, _ := r.ReadInt()
	total, _ := r.ReadInt()
	count, _ := r.ReadInt()
	id, _ := r.ReadString()
	persist, _ := r.ReadInt8()
	hasEasing, err := r.ReadBool()
	require.NoError(t, err)

	assert.Equal(t, int32(0), ticks)
	assert.Equal(t, int32(20), total)
	assert.Equal(t, int32(1), count)
	assert.Equal(t, "scale:extra", id)
	assert.Equal(t, int8(0), persist)
	assert.False(t, hasEasing)
	assert.Equal(t, 0, r.Remaining())
}

func TestWire_UnknownIdentifiersDropped(t *testing.T) {
	f := newCodecFixture(t)
	s := f.midRamp()

	w := packet.NewWriter(64)
	s.WriteWire(w)

	empty := testutil.NewMockResolver(nil)
	got := scale.NewState(f.category)
	require.NoError(t, got.ReadWire(packet.NewReader(w.Bytes()), empty))

	assert.Nil(t, got.Easing())
	assert.Empty(t, got.NonDefaultModifiers())
	assert.True(t, got.HasModifier(f.def))
	assert.Equal(t, s.BaseScale(1), got.BaseScale(1))
}

func TestWire_TruncatedLeavesStateUntouched(t *testing.T) {
	f := newCodecFixture(t)
	s := f.midRamp()

	w := packet.NewWriter(64)
	s.WriteWire(w)
	data := w.Bytes()

	got := scale.NewState(f.category)
	err := got.ReadWire(packet.NewReader(data[:len(data)-3]), f.resolver)

	assert.Error(t, err)
	assert.True(t, got.IsReset())
}

func TestWire_RejectsAbsurdModifierCount(t *testing.T) {
	f := newCodecFixture(t)
	w := packet.NewWriter(64)
	for range 4 {
		w.WriteFloat(1)
	}
	w.WriteInt(0)
	w.WriteInt(20)
	w.WriteInt(1 << 30)

	got := scale.NewState(f.category)
	assert.Error(t, got.ReadWire(packet.NewReader(w.Bytes()), f.resolver))
}
