package grid

import (
	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

// PackDensityIntoBits thresholds a dense per-cell density array into a
// 1-bit-per-cell occupancy bitfield. Bit b of output byte i corresponds to
// cell 8*i+b, and is set iff that cell's density is strictly greater than
// the threshold; density equal to the threshold packs to 0.
//
// The packer is a point-in-time snapshot: every output bit is a pure
// function of the input density and the threshold. Cell order follows the
// cascade convention (Morton order within a level, levels concatenated), but
// the packer itself is purely elementwise and order-agnostic.
func PackDensityIntoBits(density []float32, bitfield []byte, desc core.PackbitsDesc) error {
	if err := desc.Validate(); err != nil {
		return launch.Configf("%v", err)
	}
	n := int(desc.NBytes)
	if len(density) != 8*n {
		return launch.Configf("pack_density_into_bits: density length %d, want %d", len(density), 8*n)
	}
	if len(bitfield) != n {
		return launch.Configf("pack_density_into_bits: bitfield length %d, want %d", len(bitfield), n)
	}
	threshold := desc.DensityThreshold
	return launch.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			var b byte
			for bit := 0; bit < 8; bit++ {
				if density[8*i+bit] > threshold {
					b |= 1 << bit
				}
			}
			bitfield[i] = b
		}
	})
}
