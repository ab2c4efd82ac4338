package integrate

import (
	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

// deadSlot mirrors march.DeadSlot without importing the marcher.
const deadSlot = ^uint32(0)

// IntegrateRaysInference folds one streaming marching chunk into persistent
// per-ray accumulators. rayRGBs, rayDepths and rayTs span the full ray
// population (rayTs holds each ray's remaining transmittance, seeded to 1);
// nSamples, indices and the fixed-stride per-sample inputs describe the
// current working set, laid out as in march.MarchRaysInference.
//
// A slot terminates when its ray's transmittance falls below the cutoff or
// the marcher produced no samples for it (the ray left the scene). The
// terminated mask is updated in place and the number of newly terminated
// slots is returned so the caller knows when the population is exhausted.
func IntegrateRaysInference(rayRGBs, rayDepths, rayTs []float32,
	nSamples, indices []uint32, terminated []bool,
	ts, dss, densities, colors []float32,
	desc core.MarchingInferenceDesc,
) (terminateCount uint32, err error) {
	if err := desc.Validate(); err != nil {
		return 0, launch.Configf("%v", err)
	}
	nSlots := int(desc.NRays)
	stepsCap := int(desc.MarchStepsCap)
	totalRays := len(rayTs)
	if len(rayRGBs) != 3*totalRays || len(rayDepths) != totalRays {
		return 0, launch.Configf("integrate_rays_inference: accumulator lengths %d/%d for %d rays", len(rayRGBs), len(rayDepths), totalRays)
	}
	if len(nSamples) != nSlots || len(indices) != nSlots || len(terminated) != nSlots {
		return 0, launch.Configf("integrate_rays_inference: working-set lengths %d/%d/%d, want %d", len(nSamples), len(indices), len(terminated), nSlots)
	}
	chunk := nSlots * stepsCap
	if len(ts) != chunk || len(dss) != chunk || len(densities) != chunk {
		return 0, launch.Configf("integrate_rays_inference: per-sample lengths %d/%d/%d, want %d", len(ts), len(dss), len(densities), chunk)
	}
	if len(colors) != 3*chunk {
		return 0, launch.Configf("integrate_rays_inference: colors length %d, want %d", len(colors), 3*chunk)
	}
	for s, idx := range indices {
		if idx != deadSlot && int(idx) >= totalRays {
			return 0, launch.Configf("integrate_rays_inference: slot %d ray index %d out of range", s, idx)
		}
	}

	err = launch.ParallelFor(nSlots, func(start, end int) {
		for s := start; s < end; s++ {
			idx := indices[s]
			if idx == deadSlot {
				terminated[s] = true
				continue
			}
			n := int(nSamples[s])
			if n == 0 {
				terminated[s] = true
				continue
			}

			T := rayTs[idx]
			base := s * stepsCap
			for i := base; i < base+n; i++ {
				alpha := sampleAlpha(densities[i], dss[i])
				w := T * alpha
				rayRGBs[3*idx] += w * colors[3*i]
				rayRGBs[3*idx+1] += w * colors[3*i+1]
				rayRGBs[3*idx+2] += w * colors[3*i+2]
				rayDepths[idx] += w * ts[i]
				T *= 1 - alpha
				if T < TransmittanceCutoff {
					break
				}
			}
			rayTs[idx] = T
			terminated[s] = T < TransmittanceCutoff
		}
	})
	if err != nil {
		return 0, err
	}

	for s := 0; s < nSlots; s++ {
		if terminated[s] {
			terminateCount++
		}
	}
	return terminateCount, nil
}
