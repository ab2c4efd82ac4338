package integrate

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

// Three unit-density samples at ds=0.1, with pure red, green, blue colors.
// Every expected value below follows from alpha = 1 - exp(-0.1).
func threeSampleRay() (startIdx, nSamples []uint32, ts, dss, densities, colors []float32, desc core.IntegratingDesc) {
	startIdx = []uint32{0}
	nSamples = []uint32{3}
	ts = []float32{0.1, 0.2, 0.3}
	dss = []float32{0.1, 0.1, 0.1}
	densities = []float32{1, 1, 1}
	colors = []float32{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
	desc = core.IntegratingDesc{NRays: 1, TotalSamples: 3}
	return
}

func TestIntegrateRays_HandComputed(t *testing.T) {
	startIdx, nSamples, ts, dss, densities, colors, desc := threeSampleRay()

	out, err := IntegrateRays(startIdx, nSamples, ts, dss, densities, colors, desc)
	if err != nil {
		t.Fatalf("IntegrateRays failed: %v", err)
	}

	alpha := 1 - math32.Exp(-0.1)
	w0 := alpha
	w1 := (1 - alpha) * alpha
	w2 := (1 - alpha) * (1 - alpha) * alpha

	const tol = 1e-6
	check := func(name string, got, want float32) {
		t.Helper()
		if !scalar.EqualWithinAbsOrRel(float64(got), float64(want), tol, tol) {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	// With pure R, G, B sample colors the composited channels are the weights.
	check("red", out.RGBs[0], w0)
	check("green", out.RGBs[1], w1)
	check("blue", out.RGBs[2], w2)
	check("depth", out.Depths[0], w0*0.1+w1*0.2+w2*0.3)
	check("opacity", out.Opacities[0], w0+w1+w2)

	check("weight 0", out.Weights[0], w0)
	check("weight 1", out.Weights[1], w1)
	check("weight 2", out.Weights[2], w2)

	if out.MeasuredBatchSize != 3 {
		t.Errorf("MeasuredBatchSize = %d, want 3", out.MeasuredBatchSize)
	}
}

func TestIntegrateRays_OpacityConservation(t *testing.T) {
	// One ray with pseudo-random densities, one empty ray.
	const n = 50
	startIdx := []uint32{0, n}
	nSamples := []uint32{n, 0}
	ts := make([]float32, n)
	dss := make([]float32, n)
	densities := make([]float32, n)
	colors := make([]float32, 3*n)
	for i := 0; i < n; i++ {
		ts[i] = 0.1 + 0.01*float32(i)
		dss[i] = 0.01
		densities[i] = float32((i*2654435761)%17) * 0.5
	}
	desc := core.IntegratingDesc{NRays: 2, TotalSamples: n}

	out, err := IntegrateRays(startIdx, nSamples, ts, dss, densities, colors, desc)
	if err != nil {
		t.Fatalf("IntegrateRays failed: %v", err)
	}

	if out.Opacities[0] < 0 || out.Opacities[0] > 1 {
		t.Errorf("opacity %v outside [0, 1]", out.Opacities[0])
	}
	var sum float32
	for _, w := range out.Weights {
		sum += w
	}
	if !scalar.EqualWithinAbsOrRel(float64(out.Opacities[0]), float64(sum), 1e-5, 1e-5) {
		t.Errorf("opacity %v differs from summed weights %v", out.Opacities[0], sum)
	}

	if out.Opacities[1] != 0 || out.Depths[1] != 0 {
		t.Errorf("empty ray should composite to zero, got opacity=%v depth=%v", out.Opacities[1], out.Depths[1])
	}
}

func TestIntegrateRays_DegenerateDensities(t *testing.T) {
	tests := []struct {
		name      string
		density   float32
		wantAlpha float32
	}{
		{"negative absorbs nothing", -5, 0},
		{"nan absorbs nothing", math32.NaN(), 0},
		{"positive infinity saturates", math32.Inf(1), 1},
		{"zero absorbs nothing", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sampleAlpha(tt.density, 0.1); got != tt.wantAlpha {
				t.Errorf("sampleAlpha(%v, 0.1) = %v, want %v", tt.density, got, tt.wantAlpha)
			}
		})
	}
}

func TestIntegrateRays_OpaqueSampleEndsRay(t *testing.T) {
	startIdx := []uint32{0}
	nSamples := []uint32{3}
	ts := []float32{0.1, 0.2, 0.3}
	dss := []float32{0.1, 0.1, 0.1}
	densities := []float32{math32.Inf(1), 1, 1}
	colors := []float32{
		1, 1, 1,
		0.5, 0.5, 0.5,
		0.5, 0.5, 0.5,
	}
	desc := core.IntegratingDesc{NRays: 1, TotalSamples: 3}

	out, err := IntegrateRays(startIdx, nSamples, ts, dss, densities, colors, desc)
	if err != nil {
		t.Fatalf("IntegrateRays failed: %v", err)
	}

	if out.Opacities[0] != 1 {
		t.Errorf("opacity = %v, want 1 after an opaque sample", out.Opacities[0])
	}
	if out.Weights[1] != 0 || out.Weights[2] != 0 {
		t.Errorf("samples behind an opaque one must carry zero weight: %v, %v", out.Weights[1], out.Weights[2])
	}
	if out.MeasuredBatchSize != 1 {
		t.Errorf("MeasuredBatchSize = %d, want 1 (cutoff after the first sample)", out.MeasuredBatchSize)
	}
}

func TestCompositeBackground(t *testing.T) {
	desc := core.IntegratingDesc{NRays: 2, TotalSamples: 1}
	rgbs := []float32{0.2, 0.3, 0.4, 0, 0, 0}
	opacities := []float32{0.75, 0}
	bgs := []float32{1, 1, 1, 0.5, 0.25, 0.125}

	if err := CompositeBackground(rgbs, opacities, bgs, desc); err != nil {
		t.Fatalf("CompositeBackground failed: %v", err)
	}

	want := []float32{0.45, 0.55, 0.65, 0.5, 0.25, 0.125}
	for i := range want {
		if !scalar.EqualWithinAbsOrRel(float64(rgbs[i]), float64(want[i]), 1e-6, 1e-6) {
			t.Errorf("rgbs[%d] = %v, want %v", i, rgbs[i], want[i])
		}
	}
}

func TestIntegrateRays_RejectsBadLayout(t *testing.T) {
	startIdx := []uint32{0}
	nSamples := []uint32{4} // exceeds TotalSamples
	desc := core.IntegratingDesc{NRays: 1, TotalSamples: 3}

	_, err := IntegrateRays(startIdx, nSamples,
		make([]float32, 3), make([]float32, 3), make([]float32, 3), make([]float32, 9), desc)
	var ce *launch.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError for out-of-range sample window, got %T: %v", err, err)
	}
}
