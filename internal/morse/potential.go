package morse

import "math"

// MaxExponent caps the argument of the exponential, -a(r-r0). Deep inside the
// repulsive wall, or for a decay rate the solver is probing, the energy would
// otherwise overflow and poison the normal equations with Inf and NaN.
const MaxExponent = 50.0

// Saturation bounds every energy and partial derivative. A huge well depth
// combined with a clamped exponent still overflows, so values past the bound
// are pinned to it.
const Saturation = 1e300

// Saturate pins v to [-Saturation, Saturation].
func Saturate(v float64) float64 {
	switch {
	case v > Saturation:
		return Saturation
	case v < -Saturation:
		return -Saturation
	}
	return v
}

// decay returns e = exp(-a(r-r0)) and whether the exponent was clamped.
func decay(a, dr float64) (float64, bool) {
	x := -a * dr
	if x > MaxExponent {
		return math.Exp(MaxExponent), true
	}
	return math.Exp(x), false
}

// Energy is the Morse pair energy D((1-e)^2 - 1).
func Energy(p Params, r float64) float64 {
	e, _ := decay(p.A, r-p.R0)
	return Saturate(p.D * (e*e - 2*e))
}

// Gradient returns the partial derivatives of Energy with respect to D, a
// and r0. Once the exponent is clamped e no longer depends on a or r0.
func Gradient(p Params, r float64) (dD, dA, dR0 float64) {
	dr := r - p.R0
	e, clamped := decay(p.A, dr)
	dD = e*e - 2*e
	if clamped {
		return dD, 0, 0
	}
	w := Saturate(p.D * (2 * (1 - e) * e))
	return dD, Saturate(w * dr), Saturate(-w * p.A)
}
