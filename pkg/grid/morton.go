// Package grid implements the multiscale occupancy grid: Morton (z-curve)
// cell addressing, the density-to-bitfield packer, and cascade lookups used
// by the ray marcher.
package grid

import (
	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

// expandBits3 spreads the low 10 bits of v so that consecutive bits land
// three positions apart.
func expandBits3(v uint32) uint32 {
	v &= 0x3ff
	v = (v | v<<16) & 0x030000ff
	v = (v | v<<8) & 0x0300f00f
	v = (v | v<<4) & 0x030c30c3
	v = (v | v<<2) & 0x09249249
	return v
}

// compactBits3 inverts expandBits3, gathering every third bit of v.
func compactBits3(v uint32) uint32 {
	v &= 0x09249249
	v = (v ^ v>>2) & 0x030c30c3
	v = (v ^ v>>4) & 0x0300f00f
	v = (v ^ v>>8) & 0x030000ff
	v = (v ^ v>>16) & 0x000003ff
	return v
}

// EncodeMorton3 interleaves the bits of a 3D grid coordinate into a single
// z-curve index. Coordinates must be below 1024; out-of-range input is a
// caller contract violation and is not checked.
func EncodeMorton3(x, y, z uint32) uint32 {
	return expandBits3(x) | expandBits3(y)<<1 | expandBits3(z)<<2
}

// DecodeMorton3 recovers the 3D grid coordinate from a z-curve index.
// It is the strict inverse of EncodeMorton3.
func DecodeMorton3(index uint32) (x, y, z uint32) {
	return compactBits3(index), compactBits3(index >> 1), compactBits3(index >> 2)
}

// Morton3D encodes desc.Length coordinate triples into z-curve indices.
// coords is laid out as [x0 y0 z0 x1 y1 z1 ...]; indices receives one index
// per triple. Elementwise and fully parallel.
func Morton3D(coords []uint32, indices []uint32, desc core.Morton3DDesc) error {
	if err := desc.Validate(); err != nil {
		return launch.Configf("%v", err)
	}
	n := int(desc.Length)
	if len(coords) != 3*n {
		return launch.Configf("morton3d: coords length %d, want %d", len(coords), 3*n)
	}
	if len(indices) != n {
		return launch.Configf("morton3d: indices length %d, want %d", len(indices), n)
	}
	return launch.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			indices[i] = EncodeMorton3(coords[3*i], coords[3*i+1], coords[3*i+2])
		}
	})
}

// Morton3DInvert decodes desc.Length z-curve indices back into coordinate
// triples, the inverse of Morton3D.
func Morton3DInvert(indices []uint32, coords []uint32, desc core.Morton3DDesc) error {
	if err := desc.Validate(); err != nil {
		return launch.Configf("%v", err)
	}
	n := int(desc.Length)
	if len(indices) != n {
		return launch.Configf("morton3d_invert: indices length %d, want %d", len(indices), n)
	}
	if len(coords) != 3*n {
		return launch.Configf("morton3d_invert: coords length %d, want %d", len(coords), 3*n)
	}
	return launch.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			x, y, z := DecodeMorton3(indices[i])
			coords[3*i] = x
			coords[3*i+1] = y
			coords[3*i+2] = z
		}
	})
}
