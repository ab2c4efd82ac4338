// Package march walks rays through the occupancy cascade, skipping empty
// space and emitting a variable number of world-space samples per ray.
//
// The external contract is two-phase: CountSamples produces per-ray sample
// counts, OffsetsFromCounts turns them into compact-buffer offsets, and
// WriteSamples re-walks the rays to fill the flat sample buffer. MarchRays
// composes the three for callers that do not need the phases separately.
package march

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/grid"
	"github.com/volrend/go-volrend/pkg/launch"
)

// Samples is the compacted output of a marching call. Per-sample slices are
// indexed by RayStartIdx[ray]+i for sample i of a ray; positions and
// directions are xyz triples.
type Samples struct {
	Positions []float32 // world-space sample positions, 3 per sample
	Dirs      []float32 // originating ray direction, 3 per sample
	Dss       []float32 // step size used to reach each sample
	Ts        []float32 // distance of each sample from its ray origin
	Levels    []uint32  // cascade level each sample was tested against

	RayNSamples []uint32 // per-ray sample count
	RayStartIdx []uint32 // per-ray offset of the first sample

	// TotalSamples is the number of samples in the compact buffer; equal to
	// the sum of RayNSamples.
	TotalSamples uint32
}

// NewSamples allocates a sample buffer for the given totals.
func NewSamples(total, nRays int) *Samples {
	return &Samples{
		Positions:    make([]float32, 3*total),
		Dirs:         make([]float32, 3*total),
		Dss:          make([]float32, total),
		Ts:           make([]float32, total),
		Levels:       make([]uint32, total),
		RayNSamples:  make([]uint32, nRays),
		RayStartIdx:  make([]uint32, nRays),
		TotalSamples: uint32(total),
	}
}

// emitFunc receives one occupied-cell sample during a ray walk.
type emitFunc func(p mgl32.Vec3, t, dt float32, level int)

// marchRay walks a single ray through the cascade. It calls emit (when
// non-nil) for every occupied cell encountered, in strictly increasing
// t-order, and returns the number of samples produced.
//
// Empty-space skipping policy: when the current cell is unoccupied, t
// advances to the next cell boundary along the ray at the current level,
// but never by less than one cell width at that level, guaranteeing forward
// progress. The boundary jump is the documented tunable here; the one-cell
// minimum is a hard requirement.
func marchRay(o, d mgl32.Vec3, noise float32, cascade *grid.Cascade, desc core.MarchingDesc, emit emitFunc) uint32 {
	bound := desc.Bound
	sceneExtent := grid.LevelExtent(bound, cascade.K-1)
	tNear, tFar, ok := core.CubeAABB(sceneExtent).Intersect(core.Ray{Origin: o, Direction: d})
	if !ok || tFar <= 0 {
		return 0
	}
	if tNear < 0 {
		tNear = 0
	}

	// Perturb the walk's starting point by up to one step to decorrelate
	// sample positions across calls.
	t := tNear + noise*core.StepSize(tNear, desc.StepsizePortion, bound)

	return walkRay(o, d, t, tFar, cascade, desc, emit)
}

// walkRay is the shared marching loop: step through occupied cells, skip
// unoccupied ones, stop at tEnd or the sample cap.
func walkRay(o, d mgl32.Vec3, t, tEnd float32, cascade *grid.Cascade, desc core.MarchingDesc, emit emitFunc) uint32 {
	bound := desc.Bound
	var n uint32
	for t < tEnd && n < desc.MaxNSamples {
		p := o.Add(d.Mul(t))
		level := cascade.MipLevel(p, bound)
		dt := core.StepSize(t, desc.StepsizePortion, bound)
		if cascade.Occupied(level, p, bound) {
			if emit != nil {
				emit(p, t, dt, level)
			}
			n++
			t += dt
		} else {
			t = skipEmptySpace(p, d, t, cascade, bound, level)
		}
	}
	return n
}

// skipEmptySpace returns the new t after jumping over an unoccupied cell:
// the distance along the ray to the nearest cell boundary at the current
// level, floored at one cell width so progress is guaranteed even when the
// position sits right next to a boundary.
func skipEmptySpace(p, d mgl32.Vec3, t float32, cascade *grid.Cascade, bound float32, level int) float32 {
	extent := grid.LevelExtent(bound, level)
	cellWidth := cascade.CellWidth(bound, level)

	boundaryDist := float32(0)
	for axis := 0; axis < 3; axis++ {
		da := d[axis]
		if da == 0 {
			continue
		}
		// Cell boundaries along this axis sit at -extent + i*cellWidth.
		offset := (p[axis] + extent) / cellWidth
		var next float32
		if da > 0 {
			next = -extent + (floorf(offset)+1)*cellWidth
		} else {
			next = -extent + floorf(offset)*cellWidth
		}
		dist := (next - p[axis]) / da
		if boundaryDist == 0 || dist < boundaryDist {
			boundaryDist = dist
		}
	}

	jump := cellWidth
	if boundaryDist > jump {
		jump = boundaryDist
	}
	return t + jump
}

func floorf(v float32) float32 {
	f := float32(int32(v))
	if f > v {
		f--
	}
	return f
}

// CountSamples is the counting phase of the two-phase marching contract: it
// walks every ray without writing samples and returns the per-ray counts,
// each capped at desc.MaxNSamples. Rays that never enter an occupied cell
// count zero, which is a legal outcome.
func CountSamples(origins, dirs, noises []float32, cascade *grid.Cascade, desc core.MarchingDesc) ([]uint32, error) {
	if err := validateMarchInputs(origins, dirs, noises, cascade, desc); err != nil {
		return nil, err
	}
	nRays := int(desc.NRays)
	counts := make([]uint32, nRays)
	err := launch.ParallelFor(nRays, func(start, end int) {
		for r := start; r < end; r++ {
			o, d, noise := rayInputs(origins, dirs, noises, r)
			counts[r] = marchRay(o, d, noise, cascade, desc, nil)
		}
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// OffsetsFromCounts computes the exclusive prefix sum of the per-ray counts,
// yielding each ray's offset into the compact sample buffer and the total
// sample count.
func OffsetsFromCounts(counts []uint32) (offsets []uint32, total uint32) {
	offsets = make([]uint32, len(counts))
	for i, n := range counts {
		offsets[i] = total
		total += n
	}
	return offsets, total
}

// WriteSamples is the compacting phase: it re-walks every ray and writes its
// samples at the ray's offset. The walk is identical to the counting phase,
// so counts and offsets from CountSamples describe the output exactly. The
// out buffer must hold the total derived from the counts.
func WriteSamples(origins, dirs, noises []float32, cascade *grid.Cascade, desc core.MarchingDesc, counts, offsets []uint32, out *Samples) error {
	if err := validateMarchInputs(origins, dirs, noises, cascade, desc); err != nil {
		return err
	}
	nRays := int(desc.NRays)
	if len(counts) != nRays || len(offsets) != nRays {
		return launch.Configf("march_rays: counts/offsets length %d/%d, want %d", len(counts), len(offsets), nRays)
	}
	var total uint32
	if nRays > 0 {
		total = offsets[nRays-1] + counts[nRays-1]
	}
	if uint32(len(out.Dss)) < total || uint32(len(out.Ts)) < total ||
		uint32(len(out.Levels)) < total ||
		uint32(len(out.Positions)) < 3*total || uint32(len(out.Dirs)) < 3*total {
		return launch.Configf("march_rays: output buffers too small for %d samples", total)
	}
	if len(out.RayNSamples) != nRays || len(out.RayStartIdx) != nRays {
		return launch.Configf("march_rays: per-ray output length %d/%d, want %d", len(out.RayNSamples), len(out.RayStartIdx), nRays)
	}

	err := launch.ParallelFor(nRays, func(start, end int) {
		for r := start; r < end; r++ {
			o, d, noise := rayInputs(origins, dirs, noises, r)
			base := offsets[r]
			i := base
			marchRay(o, d, noise, cascade, desc, func(p mgl32.Vec3, t, dt float32, level int) {
				out.Positions[3*i] = p[0]
				out.Positions[3*i+1] = p[1]
				out.Positions[3*i+2] = p[2]
				out.Dirs[3*i] = d[0]
				out.Dirs[3*i+1] = d[1]
				out.Dirs[3*i+2] = d[2]
				out.Dss[i] = dt
				out.Ts[i] = t
				out.Levels[i] = uint32(level)
				i++
			})
			out.RayNSamples[r] = i - base
			out.RayStartIdx[r] = base
		}
	})
	if err != nil {
		return err
	}
	out.TotalSamples = total
	return nil
}

// MarchRays runs the full two-phase protocol: count, prefix-sum, allocate
// exactly, and compact-write. The returned MeasuredBatchSizeBeforeCompaction
// equals the sum of per-ray counts, matching the total of the allocated
// buffer since allocation is exact.
func MarchRays(origins, dirs, noises []float32, cascade *grid.Cascade, desc core.MarchingDesc) (*Samples, error) {
	counts, err := CountSamples(origins, dirs, noises, cascade, desc)
	if err != nil {
		return nil, err
	}
	offsets, total := OffsetsFromCounts(counts)
	out := NewSamples(int(total), int(desc.NRays))
	if err := WriteSamples(origins, dirs, noises, cascade, desc, counts, offsets, out); err != nil {
		return nil, err
	}
	return out, nil
}

func validateMarchInputs(origins, dirs, noises []float32, cascade *grid.Cascade, desc core.MarchingDesc) error {
	if err := desc.Validate(); err != nil {
		return launch.Configf("%v", err)
	}
	nRays := int(desc.NRays)
	if len(origins) != 3*nRays {
		return launch.Configf("march_rays: origins length %d, want %d", len(origins), 3*nRays)
	}
	if len(dirs) != 3*nRays {
		return launch.Configf("march_rays: dirs length %d, want %d", len(dirs), 3*nRays)
	}
	if noises != nil && len(noises) != nRays {
		return launch.Configf("march_rays: noises length %d, want %d", len(noises), nRays)
	}
	return cascade.Validate(desc.K, desc.G)
}

func rayInputs(origins, dirs, noises []float32, r int) (o, d mgl32.Vec3, noise float32) {
	o = mgl32.Vec3{origins[3*r], origins[3*r+1], origins[3*r+2]}
	d = mgl32.Vec3{dirs[3*r], dirs[3*r+1], dirs[3*r+2]}
	if noises != nil {
		noise = noises[r]
	}
	return o, d, noise
}
