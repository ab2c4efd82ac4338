package integrate

import (
	"github.com/chewxy/math32"

	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

// Grads holds the per-sample gradients produced by the backward pass.
type Grads struct {
	Densities []float32 // dL/dsigma per sample
	Colors    []float32 // dL/dcolor, 3 per sample
}

// IntegrateRaysBackward computes the exact adjoint of IntegrateRays.
//
// Each sample's alpha influences its own weight directly and every later
// weight through reduced transmittance. Rather than touching all later
// samples per step, the indirect term is the ray's total weighted
// contribution minus a running prefix, using the forward outputs (which the
// caller passes back in):
//
//	dL/dalpha_i = T_{i+1}/(1-alpha_i) * g_i - suffix_i/(1-alpha_i)
//	dL/dsigma_i = ds_i * (T_{i+1} * g_i - suffix_i)
//
// where g_i = dLdColor . c_i + dLdDepth * t_i + dLdOpacity and suffix_i is
// the weighted g-sum over samples after i. The per-sample transmittance is
// recomputed in a forward scan from sigma and ds (compute traded against
// caching T; the cached forward Weights are implied by that scan, so the two
// retention policies agree exactly).
//
// The scan stops at the same transmittance cutoff as the forward pass, so
// truncated tail samples get zero gradients, consistent with their zero
// forward contribution.
func IntegrateRaysBackward(startIdx, nSamples []uint32, ts, dss, densities, colors []float32,
	rgbs, depths, opacities []float32,
	dRGBs, dDepths, dOpacities []float32,
	desc core.IntegratingDesc,
) (*Grads, error) {
	if err := validateLayout(startIdx, nSamples, ts, dss, densities, colors, desc); err != nil {
		return nil, err
	}
	nRays := int(desc.NRays)
	total := int(desc.TotalSamples)
	if len(rgbs) != 3*nRays || len(dRGBs) != 3*nRays {
		return nil, launch.Configf("integrate_rays_backward: rgbs/dRGBs length %d/%d, want %d", len(rgbs), len(dRGBs), 3*nRays)
	}
	if len(depths) != nRays || len(dDepths) != nRays || len(opacities) != nRays || len(dOpacities) != nRays {
		return nil, launch.Configf("integrate_rays_backward: per-ray input lengths %d/%d/%d/%d, want %d",
			len(depths), len(dDepths), len(opacities), len(dOpacities), nRays)
	}

	grads := &Grads{
		Densities: make([]float32, total),
		Colors:    make([]float32, 3*total),
	}

	err := launch.ParallelFor(nRays, func(start, end int) {
		for r := start; r < end; r++ {
			begin := startIdx[r]
			n := nSamples[r]

			dcr := dRGBs[3*r]
			dcg := dRGBs[3*r+1]
			dcb := dRGBs[3*r+2]
			dd := dDepths[r]
			do := dOpacities[r]

			// Total weighted contribution of the whole ray, from the
			// forward outputs.
			totalG := dcr*rgbs[3*r] + dcg*rgbs[3*r+1] + dcb*rgbs[3*r+2] + dd*depths[r] + do*opacities[r]

			T := float32(1)
			prefix := float32(0)
			for i := begin; i < begin+n; i++ {
				alpha := sampleAlpha(densities[i], dss[i])
				w := T * alpha

				g := dcr*colors[3*i] + dcg*colors[3*i+1] + dcb*colors[3*i+2] + dd*ts[i] + do
				prefix += w * g
				Tnext := T * (1 - alpha)

				grads.Colors[3*i] = w * dcr
				grads.Colors[3*i+1] = w * dcg
				grads.Colors[3*i+2] = w * dcb
				if math32.IsNaN(densities[i]) || densities[i] < 0 {
					// Clamped in the forward pass, so the loss is locally
					// insensitive to this density.
					grads.Densities[i] = 0
				} else {
					grads.Densities[i] = dss[i] * (Tnext*g - (totalG - prefix))
				}

				T = Tnext
				if T < TransmittanceCutoff {
					break
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return grads, nil
}
