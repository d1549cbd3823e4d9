package scale

// Easing maps a progress fraction in [0,1] to an eased fraction.
type Easing struct {
	id string
	fn func(float32) float32
}

// NewEasing wraps fn under a registry identifier.
func NewEasing(id string, fn func(float32) float32) *Easing {
	return &Easing{id: id, fn: fn}
}

// ID returns the registry identifier.
func (e *Easing) ID() string {
	return e.id
}

// Apply evaluates the curve.
func (e *Easing) Apply(progress float32) float32 {
	return e.fn(progress)
}

// Linear is the identity curve, used when a category declares no easing.
var Linear = NewEasing("scale:linear", func(x float32) float32 { return x })

// evaluate computes the base value of a ramp at ticks+delta.
// A zero total means the ramp is instantaneous whatever the curve.
func evaluate(initial, target float32, total, ticks int32, delta float32, easing *Easing) float32 {
	progress := float32(ticks) + delta
	rng := target - initial
	fraction := float32(1)
	if total != 0 {
		fraction = easing.Apply(progress / float32(total))
	}
	return initial + fraction*rng
}
