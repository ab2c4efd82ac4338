// Package integrate composites per-sample density and color into per-ray
// radiance, depth, and opacity via the emission-absorption volume rendering
// integral, and computes the exact adjoint for training.
package integrate

import (
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

// TransmittanceCutoff is the transmittance below which remaining samples on
// a ray no longer contribute measurably. Both the forward and backward pass
// stop there, so the two stay consistent; the truncated tail differs from
// the exact integral by less than the cutoff itself.
const TransmittanceCutoff = 1e-4

// Outputs holds the per-ray results of a forward integration call.
type Outputs struct {
	RGBs      []float32 // composited color, 3 per ray
	Depths    []float32 // weight-averaged sample distance per ray
	Opacities []float32 // total per-ray opacity, in [0, 1]

	// Weights caches each sample's contribution coefficient for reuse by
	// the backward pass (memory traded against recomputation; see
	// IntegrateRaysBackward for the other side of that trade).
	Weights []float32

	// MeasuredBatchSize counts the samples that contributed before the
	// transmittance cutoff ended their rays.
	MeasuredBatchSize uint32
}

// IntegrateRays composites each ray's samples front to back:
//
//	alpha_i  = 1 - exp(-sigma_i * ds_i)
//	T_i      = prod_{j<i} (1 - alpha_j),  T_0 = 1
//	weight_i = T_i * alpha_i
//
// accumulating weight_i * (color_i, t_i, 1) into the ray's color, depth and
// opacity. Negative and NaN densities contribute nothing; rays with zero
// samples yield zeros. Background compositing is applied separately, see
// CompositeBackground.
func IntegrateRays(startIdx, nSamples []uint32, ts, dss, densities, colors []float32, desc core.IntegratingDesc) (*Outputs, error) {
	if err := validateLayout(startIdx, nSamples, ts, dss, densities, colors, desc); err != nil {
		return nil, err
	}
	nRays := int(desc.NRays)
	total := int(desc.TotalSamples)

	out := &Outputs{
		RGBs:      make([]float32, 3*nRays),
		Depths:    make([]float32, nRays),
		Opacities: make([]float32, nRays),
		Weights:   make([]float32, total),
	}

	err := launch.ParallelFor(nRays, func(start, end int) {
		var composited uint32
		for r := start; r < end; r++ {
			begin := startIdx[r]
			n := nSamples[r]

			T := float32(1)
			var cr, cg, cb, depth, opacity float32
			for i := begin; i < begin+n; i++ {
				alpha := sampleAlpha(densities[i], dss[i])
				w := T * alpha
				cr += w * colors[3*i]
				cg += w * colors[3*i+1]
				cb += w * colors[3*i+2]
				depth += w * ts[i]
				opacity += w
				out.Weights[i] = w
				T *= 1 - alpha
				composited++
				if T < TransmittanceCutoff {
					break
				}
			}
			out.RGBs[3*r] = cr
			out.RGBs[3*r+1] = cg
			out.RGBs[3*r+2] = cb
			out.Depths[r] = depth
			out.Opacities[r] = opacity
		}
		atomic.AddUint32(&out.MeasuredBatchSize, composited)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// sampleAlpha converts one sample's density and step size into opacity.
// Degenerate densities (negative, NaN) absorb nothing; +Inf saturates to 1.
func sampleAlpha(sigma, ds float32) float32 {
	if math32.IsNaN(sigma) || sigma < 0 {
		return 0
	}
	return 1 - math32.Exp(-sigma*ds)
}

// CompositeBackground blends each ray's accumulated color over a background
// color using the ray's remaining transmittance (1 - opacity). bgs holds one
// RGB triple per ray.
func CompositeBackground(rgbs, opacities, bgs []float32, desc core.IntegratingDesc) error {
	nRays := int(desc.NRays)
	if len(rgbs) != 3*nRays || len(bgs) != 3*nRays {
		return launch.Configf("composite_background: rgbs/bgs length %d/%d, want %d", len(rgbs), len(bgs), 3*nRays)
	}
	if len(opacities) != nRays {
		return launch.Configf("composite_background: opacities length %d, want %d", len(opacities), nRays)
	}
	return launch.ParallelFor(nRays, func(start, end int) {
		for r := start; r < end; r++ {
			rest := 1 - opacities[r]
			rgbs[3*r] += rest * bgs[3*r]
			rgbs[3*r+1] += rest * bgs[3*r+1]
			rgbs[3*r+2] += rest * bgs[3*r+2]
		}
	})
}

func validateLayout(startIdx, nSamples []uint32, ts, dss, densities, colors []float32, desc core.IntegratingDesc) error {
	if err := desc.Validate(); err != nil {
		return launch.Configf("%v", err)
	}
	nRays := int(desc.NRays)
	total := int(desc.TotalSamples)
	if len(startIdx) != nRays || len(nSamples) != nRays {
		return launch.Configf("integrate_rays: start/count length %d/%d, want %d", len(startIdx), len(nSamples), nRays)
	}
	if len(ts) != total || len(dss) != total || len(densities) != total {
		return launch.Configf("integrate_rays: per-sample length %d/%d/%d, want %d", len(ts), len(dss), len(densities), total)
	}
	if len(colors) != 3*total {
		return launch.Configf("integrate_rays: colors length %d, want %d", len(colors), 3*total)
	}
	for r := 0; r < nRays; r++ {
		if int(startIdx[r])+int(nSamples[r]) > total {
			return launch.Configf("integrate_rays: ray %d sample range [%d, %d) exceeds total %d", r, startIdx[r], startIdx[r]+nSamples[r], total)
		}
	}
	return nil
}
