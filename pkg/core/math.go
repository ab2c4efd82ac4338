package core

import "github.com/chewxy/math32"

// Sqrt3 is the length of the unit cube's diagonal, used to size marching
// steps relative to the scene bound.
const Sqrt3 = 1.7320508075688772

// DiagonalNSteps is the nominal number of marching steps across the scene
// diagonal; the minimal step size is Sqrt3/DiagonalNSteps.
const DiagonalNSteps = 1024

// MinStepSize returns the smallest marching step size.
func MinStepSize() float32 {
	return Sqrt3 / DiagonalNSteps
}

// MaxStepSize returns the largest marching step size for a scene of the
// given half-extent.
func MaxStepSize(bound float32) float32 {
	return 2 * bound * Sqrt3 / DiagonalNSteps
}

// StepSize computes the marching step at distance t from the ray origin.
// The step grows linearly with t (per-pixel footprint grows with distance)
// and is clamped to [MinStepSize, MaxStepSize].
func StepSize(t, stepsizePortion, bound float32) float32 {
	return Clamp(t*stepsizePortion, MinStepSize(), MaxStepSize(bound))
}

// Clamp limits v to the range [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}
