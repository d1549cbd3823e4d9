package registry

import (
	"github.com/tanema/gween/ease"

	"github.com/udisondev/scalekit/internal/scale"
)

// Builtin easings, addressable as "scale:<name>".
var (
	QuadIn       = curve("quad_in", ease.InQuad)
	QuadOut      = curve("quad_out", ease.OutQuad)
	QuadInOut    = curve("quad_in_out", ease.InOutQuad)
	CubicIn      = curve("cubic_in", ease.InCubic)
	CubicOut     = curve("cubic_out", ease.OutCubic)
	CubicInOut   = curve("cubic_in_out", ease.InOutCubic)
	QuartIn      = curve("quart_in", ease.InQuart)
	QuartOut     = curve("quart_out", ease.OutQuart)
	QuartInOut   = curve("quart_in_out", ease.InOutQuart)
	QuintIn      = curve("quint_in", ease.InQuint)
	QuintOut     = curve("quint_out", ease.OutQuint)
	QuintInOut   = curve("quint_in_out", ease.InOutQuint)
	SineIn       = curve("sine_in", ease.InSine)
	SineOut      = curve("sine_out", ease.OutSine)
	SineInOut    = curve("sine_in_out", ease.InOutSine)
	ExpoIn       = curve("expo_in", ease.InExpo)
	ExpoOut      = curve("expo_out", ease.OutExpo)
	ExpoInOut    = curve("expo_in_out", ease.InOutExpo)
	CircIn       = curve("circ_in", ease.InCirc)
	CircOut      = curve("circ_out", ease.OutCirc)
	CircInOut    = curve("circ_in_out", ease.InOutCirc)
	BackIn       = curve("back_in", ease.InBack)
	BackOut      = curve("back_out", ease.OutBack)
	BackInOut    = curve("back_in_out", ease.InOutBack)
	ElasticIn    = curve("elastic_in", ease.InElastic)
	ElasticOut   = curve("elastic_out", ease.OutElastic)
	ElasticInOut = curve("elastic_in_out", ease.InOutElastic)
	BounceIn     = curve("bounce_in", ease.InBounce)
	BounceOut    = curve("bounce_out", ease.OutBounce)
	BounceInOut  = curve("bounce_in_out", ease.InOutBounce)
)

// Easings returns every builtin curve, linear first.
func Easings() []*scale.Easing {
	return []*scale.Easing{
		scale.Linear,
		QuadIn, QuadOut, QuadInOut,
		CubicIn, CubicOut, CubicInOut,
		QuartIn, QuartOut, QuartInOut,
		QuintIn, QuintOut, QuintInOut,
		SineIn, SineOut, SineInOut,
		ExpoIn, ExpoOut, ExpoInOut,
		CircIn, CircOut, CircInOut,
		BackIn, BackOut, BackInOut,
		ElasticIn, ElasticOut, ElasticInOut,
		BounceIn, BounceOut, BounceInOut,
	}
}

// curve runs a tween function over unit progress. The result is rescaled to
// start at exactly 0 and end at exactly 1; the expo tweens stop a fraction
// short of both.
func curve(name string, fn ease.TweenFunc) *scale.Easing {
	lo, hi := fn(0, 0, 1, 1), fn(1, 0, 1, 1)
	span := hi - lo
	return scale.NewEasing("scale:"+name, func(x float32) float32 {
		return (fn(x, 0, 1, 1) - lo) / span
	})
}
