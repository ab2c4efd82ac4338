package integrate

import (
	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

func init() {
	launch.Register("integrate_rays", integrateRaysKernel)
	launch.Register("integrate_rays_backward", integrateRaysBackwardKernel)
}

// Buffer order: 0 start indices, 1 sample counts (uint32), 2 ts, 3 dss,
// 4 densities, 5 colors (float32 inputs); 6 rgbs, 7 depths, 8 opacities,
// 9 weights (float32 outputs).
func integrateRaysKernel(buffers [][]byte, opaque []byte) error {
	var desc core.IntegratingDesc
	if err := desc.UnmarshalBinary(opaque); err != nil {
		return launch.Configf("%v", err)
	}
	if len(buffers) != 10 {
		return launch.Configf("integrate_rays: want 10 buffers, got %d", len(buffers))
	}
	u32 := make([][]uint32, 2)
	for i := 0; i < 2; i++ {
		v, err := launch.Uint32s(buffers[i])
		if err != nil {
			return err
		}
		u32[i] = v
	}
	f32 := make([][]float32, 8)
	for i := 0; i < 8; i++ {
		v, err := launch.Float32s(buffers[2+i])
		if err != nil {
			return err
		}
		f32[i] = v
	}

	out, err := IntegrateRays(u32[0], u32[1], f32[0], f32[1], f32[2], f32[3], desc)
	if err != nil {
		return err
	}
	if len(f32[4]) != len(out.RGBs) || len(f32[5]) != len(out.Depths) ||
		len(f32[6]) != len(out.Opacities) || len(f32[7]) != len(out.Weights) {
		return launch.Configf("integrate_rays: output buffer sizes do not match descriptor")
	}
	copy(f32[4], out.RGBs)
	copy(f32[5], out.Depths)
	copy(f32[6], out.Opacities)
	copy(f32[7], out.Weights)
	return nil
}

// Buffer order: 0 start indices, 1 sample counts (uint32), 2 ts, 3 dss,
// 4 densities, 5 colors, 6 rgbs, 7 depths, 8 opacities (forward outputs),
// 9 dRGBs, 10 dDepths, 11 dOpacities (upstream gradients); 12 dDensities,
// 13 dColors (outputs).
func integrateRaysBackwardKernel(buffers [][]byte, opaque []byte) error {
	var desc core.IntegratingDesc
	if err := desc.UnmarshalBinary(opaque); err != nil {
		return launch.Configf("%v", err)
	}
	if len(buffers) != 14 {
		return launch.Configf("integrate_rays_backward: want 14 buffers, got %d", len(buffers))
	}
	startIdx, err := launch.Uint32s(buffers[0])
	if err != nil {
		return err
	}
	nSamples, err := launch.Uint32s(buffers[1])
	if err != nil {
		return err
	}
	f32 := make([][]float32, 12)
	for i := 0; i < 12; i++ {
		v, err := launch.Float32s(buffers[2+i])
		if err != nil {
			return err
		}
		f32[i] = v
	}

	grads, err := IntegrateRaysBackward(startIdx, nSamples,
		f32[0], f32[1], f32[2], f32[3],
		f32[4], f32[5], f32[6],
		f32[7], f32[8], f32[9],
		desc)
	if err != nil {
		return err
	}
	if len(f32[10]) != len(grads.Densities) || len(f32[11]) != len(grads.Colors) {
		return launch.Configf("integrate_rays_backward: output buffer sizes do not match descriptor")
	}
	copy(f32[10], grads.Densities)
	copy(f32[11], grads.Colors)
	return nil
}
