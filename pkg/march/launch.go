package march

import (
	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/grid"
	"github.com/volrend/go-volrend/pkg/launch"
)

func init() {
	launch.Register("march_rays", marchRaysKernel)
}

// Buffer order: 0 origins, 1 dirs, 2 noises (float32; may be empty), 3
// occupancy bitfield (bytes), 4 per-ray counts (uint32), 5 per-ray offsets
// (uint32), 6 positions, 7 sample dirs, 8 dss, 9 ts (float32), 10 levels
// (uint32). Sample output buffers are caller-sized; a capacity smaller than
// the marched total is a configuration error.
func marchRaysKernel(buffers [][]byte, opaque []byte) error {
	var desc core.MarchingDesc
	if err := desc.UnmarshalBinary(opaque); err != nil {
		return launch.Configf("%v", err)
	}
	if len(buffers) != 11 {
		return launch.Configf("march_rays: want 11 buffers, got %d", len(buffers))
	}

	origins, err := launch.Float32s(buffers[0])
	if err != nil {
		return err
	}
	dirs, err := launch.Float32s(buffers[1])
	if err != nil {
		return err
	}
	noises, err := launch.Float32s(buffers[2])
	if err != nil {
		return err
	}
	cascade, err := grid.FromBitfield(int(desc.K), int(desc.G), buffers[3])
	if err != nil {
		return err
	}
	counts, err := launch.Uint32s(buffers[4])
	if err != nil {
		return err
	}
	offsets, err := launch.Uint32s(buffers[5])
	if err != nil {
		return err
	}
	positions, err := launch.Float32s(buffers[6])
	if err != nil {
		return err
	}
	sampleDirs, err := launch.Float32s(buffers[7])
	if err != nil {
		return err
	}
	dss, err := launch.Float32s(buffers[8])
	if err != nil {
		return err
	}
	ts, err := launch.Float32s(buffers[9])
	if err != nil {
		return err
	}
	levels, err := launch.Uint32s(buffers[10])
	if err != nil {
		return err
	}

	gotCounts, err := CountSamples(origins, dirs, noises, cascade, desc)
	if err != nil {
		return err
	}
	if len(counts) != len(gotCounts) {
		return launch.Configf("march_rays: counts buffer holds %d entries, want %d", len(counts), len(gotCounts))
	}
	copy(counts, gotCounts)
	gotOffsets, _ := OffsetsFromCounts(gotCounts)
	if len(offsets) != len(gotOffsets) {
		return launch.Configf("march_rays: offsets buffer holds %d entries, want %d", len(offsets), len(gotOffsets))
	}
	copy(offsets, gotOffsets)

	out := &Samples{
		Positions:   positions,
		Dirs:        sampleDirs,
		Dss:         dss,
		Ts:          ts,
		Levels:      levels,
		RayNSamples: counts,
		RayStartIdx: offsets,
	}
	return WriteSamples(origins, dirs, noises, cascade, desc, gotCounts, gotOffsets, out)
}
