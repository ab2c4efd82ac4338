package grid

import (
	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

// Launch-surface adapters: each decodes the opaque descriptor, binds the
// positional buffer list, and calls the typed kernel.

func init() {
	launch.Register("pack_density_into_bits", packDensityKernel)
	launch.Register("morton3d", morton3DKernel)
	launch.Register("morton3d_invert", morton3DInvertKernel)
}

// Buffer order: 0 density (float32), 1 bitfield (bytes).
func packDensityKernel(buffers [][]byte, opaque []byte) error {
	var desc core.PackbitsDesc
	if err := desc.UnmarshalBinary(opaque); err != nil {
		return launch.Configf("%v", err)
	}
	if len(buffers) != 2 {
		return launch.Configf("pack_density_into_bits: want 2 buffers, got %d", len(buffers))
	}
	density, err := launch.Float32s(buffers[0])
	if err != nil {
		return err
	}
	return PackDensityIntoBits(density, buffers[1], desc)
}

// Buffer order: 0 coords (uint32 xyz triples), 1 indices (uint32).
func morton3DKernel(buffers [][]byte, opaque []byte) error {
	var desc core.Morton3DDesc
	if err := desc.UnmarshalBinary(opaque); err != nil {
		return launch.Configf("%v", err)
	}
	if len(buffers) != 2 {
		return launch.Configf("morton3d: want 2 buffers, got %d", len(buffers))
	}
	coords, err := launch.Uint32s(buffers[0])
	if err != nil {
		return err
	}
	indices, err := launch.Uint32s(buffers[1])
	if err != nil {
		return err
	}
	return Morton3D(coords, indices, desc)
}

// Buffer order: 0 indices (uint32), 1 coords (uint32 xyz triples).
func morton3DInvertKernel(buffers [][]byte, opaque []byte) error {
	var desc core.Morton3DDesc
	if err := desc.UnmarshalBinary(opaque); err != nil {
		return launch.Configf("%v", err)
	}
	if len(buffers) != 2 {
		return launch.Configf("morton3d_invert: want 2 buffers, got %d", len(buffers))
	}
	indices, err := launch.Uint32s(buffers[0])
	if err != nil {
		return err
	}
	coords, err := launch.Uint32s(buffers[1])
	if err != nil {
		return err
	}
	return Morton3DInvert(indices, coords, desc)
}
