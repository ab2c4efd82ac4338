package march

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/grid"
	"github.com/volrend/go-volrend/pkg/launch"
)

// DeadSlot marks a working-set slot with no ray assigned to it.
const DeadSlot = ^uint32(0)

// InferenceResult is the fixed-stride output of one streaming marching call.
// Slot s owns the range [s*MarchStepsCap, s*MarchStepsCap+NSamples[s]) in
// the per-sample slices.
type InferenceResult struct {
	NSamples  []uint32
	Positions []float32 // 3 per sample slot
	Dirs      []float32 // 3 per sample slot
	Dss       []float32
	Ts        []float32
}

// MarchRaysInference marches a fixed working set of ray slots through the
// cascade, at most desc.MarchStepsCap samples per slot per call. This is the
// render-time counterpart of MarchRays: instead of marching every ray to
// completion up front, rays stream through a small compacted working set so
// the network can be evaluated in bounded-size chunks.
//
// origins, dirs, tEnds describe the full ray population; tStarts carries
// each ray's marching frontier and is advanced in place. The caller seeds
// tStarts and tEnds from a scene-box intersection pre-pass; the kernel does
// not re-derive them. terminated and
// indices are the per-slot working-set state: a terminated slot is refilled
// with the ray numbered *nextRay before marching. Slots are refilled in slot
// order, keeping the assignment deterministic. When the population is
// exhausted, refilled slots get DeadSlot and produce zero samples.
func MarchRaysInference(origins, dirs, tStarts, tEnds []float32, cascade *grid.Cascade,
	nextRay *uint32, terminated []bool, indices []uint32, desc core.MarchingInferenceDesc,
) (*InferenceResult, error) {
	if err := desc.Validate(); err != nil {
		return nil, launch.Configf("%v", err)
	}
	if err := cascade.Validate(desc.K, desc.G); err != nil {
		return nil, err
	}
	totalRays := len(origins) / 3
	if len(origins) != 3*totalRays || len(dirs) != len(origins) {
		return nil, launch.Configf("march_rays_inference: origins/dirs length %d/%d", len(origins), len(dirs))
	}
	if len(tStarts) != totalRays || len(tEnds) != totalRays {
		return nil, launch.Configf("march_rays_inference: t_starts/t_ends length %d/%d, want %d", len(tStarts), len(tEnds), totalRays)
	}
	nSlots := int(desc.NRays)
	if len(terminated) != nSlots || len(indices) != nSlots {
		return nil, launch.Configf("march_rays_inference: terminated/indices length %d/%d, want %d", len(terminated), len(indices), nSlots)
	}

	// Refill terminated slots serially so ray assignment is deterministic.
	for s := 0; s < nSlots; s++ {
		if !terminated[s] {
			continue
		}
		if *nextRay < uint32(totalRays) {
			indices[s] = *nextRay
			*nextRay++
			terminated[s] = false
		} else {
			indices[s] = DeadSlot
		}
	}

	stepsCap := int(desc.MarchStepsCap)
	res := &InferenceResult{
		NSamples:  make([]uint32, nSlots),
		Positions: make([]float32, 3*nSlots*stepsCap),
		Dirs:      make([]float32, 3*nSlots*stepsCap),
		Dss:       make([]float32, nSlots*stepsCap),
		Ts:        make([]float32, nSlots*stepsCap),
	}

	marchDesc := core.MarchingDesc{
		NRays:           1,
		MaxNSamples:     desc.MarchStepsCap,
		K:               desc.K,
		G:               desc.G,
		Bound:           desc.Bound,
		StepsizePortion: desc.StepsizePortion,
	}

	err := launch.ParallelFor(nSlots, func(start, end int) {
		for s := start; s < end; s++ {
			ray := indices[s]
			if ray == DeadSlot || terminated[s] {
				continue
			}
			o, d, _ := rayInputs(origins, dirs, nil, int(ray))
			base := s * stepsCap
			i := base
			tStart := tStarts[ray]
			if tStart < 0 {
				tStart = 0
			}
			lastT := tStart
			n := walkRay(o, d, tStart, tEnds[ray], cascade, marchDesc, func(p mgl32.Vec3, t, dt float32, level int) {
				res.Positions[3*i] = p[0]
				res.Positions[3*i+1] = p[1]
				res.Positions[3*i+2] = p[2]
				res.Dirs[3*i] = d[0]
				res.Dirs[3*i+1] = d[1]
				res.Dirs[3*i+2] = d[2]
				res.Dss[i] = dt
				res.Ts[i] = t
				lastT = t + dt
				i++
			})
			res.NSamples[s] = n
			// Advance the frontier past the emitted samples; a slot that
			// produced nothing has walked to the scene boundary.
			if n > 0 {
				tStarts[ray] = lastT
			} else {
				tStarts[ray] = tEnds[ray]
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
