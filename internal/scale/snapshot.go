package scale

// Snapshot is an immutable copy of a State taken on the authoritative
// goroutine. It is safe to read from any goroutine.
type Snapshot struct {
	Category        string
	BaseScale       float32
	PrevBaseScale   float32
	InitialScale    float32
	TargetScale     float32
	ScaleTicks      int32
	TotalScaleTicks int32
	// Scale and PrevScale are the composed full-step values.
	Scale     float32
	PrevScale float32

	easing *Easing
}

// Snapshot captures the current state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Category:        s.category.ID(),
		BaseScale:       s.baseScale,
		PrevBaseScale:   s.prevBaseScale,
		InitialScale:    s.initialScale,
		TargetScale:     s.targetScale,
		ScaleTicks:      s.scaleTicks,
		TotalScaleTicks: s.totalScaleTicks,
		Scale:           s.Scale(1),
		PrevScale:       s.PrevScale(),
		easing:          s.currentEasing(),
	}
}

// BaseScaleAt evaluates the ramp at a fractional step without touching the
// source state.
func (sn Snapshot) BaseScaleAt(delta float32) float32 {
	if delta == 1 {
		return sn.BaseScale
	}
	e := sn.easing
	if e == nil {
		e = Linear
	}
	return evaluate(sn.InitialScale, sn.TargetScale, sn.TotalScaleTicks, sn.ScaleTicks, delta, e)
}

// Lerp interpolates the composed scale between the previous and current step.
func (sn Snapshot) Lerp(delta float32) float32 {
	return sn.PrevScale + (sn.Scale-sn.PrevScale)*delta
}
