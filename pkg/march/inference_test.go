package march

import (
	"testing"

	"github.com/volrend/go-volrend/pkg/core"
)

func inferenceDesc(nSlots, stepsCap int) core.MarchingInferenceDesc {
	return core.MarchingInferenceDesc{
		NRays:           uint32(nSlots),
		K:               2,
		G:               16,
		MarchStepsCap:   uint32(stepsCap),
		Bound:           1,
		StepsizePortion: 0,
	}
}

func TestMarchRaysInference_RefillsSlotsInOrder(t *testing.T) {
	cascade := fullCascade(t, 2, 16)

	const totalRays = 5
	origins := make([]float32, 3*totalRays)
	dirs := make([]float32, 3*totalRays)
	tStarts := make([]float32, totalRays)
	tEnds := make([]float32, totalRays)
	for r := 0; r < totalRays; r++ {
		origins[3*r+2] = -5
		dirs[3*r+2] = 1
		tStarts[r] = 3 // scene-box entry at z = -2
		tEnds[r] = 7
	}

	nextRay := uint32(0)
	terminated := []bool{true, true, true} // all slots start empty
	indices := make([]uint32, 3)

	res, err := MarchRaysInference(origins, dirs, tStarts, tEnds, cascade,
		&nextRay, terminated, indices, inferenceDesc(3, 4))
	if err != nil {
		t.Fatalf("MarchRaysInference failed: %v", err)
	}

	if nextRay != 3 {
		t.Errorf("nextRay = %d, want 3 after filling three slots", nextRay)
	}
	for s := 0; s < 3; s++ {
		if indices[s] != uint32(s) {
			t.Errorf("slot %d assigned ray %d, want %d", s, indices[s], s)
		}
		if res.NSamples[s] != 4 {
			t.Errorf("slot %d produced %d samples, want the cap of 4", s, res.NSamples[s])
		}
		if terminated[s] {
			t.Errorf("slot %d terminated after one chunk of a long ray", s)
		}
	}
}

func TestMarchRaysInference_DeadSlotsWhenPopulationExhausted(t *testing.T) {
	cascade := fullCascade(t, 2, 16)

	origins := []float32{0, 0, -5}
	dirs := []float32{0, 0, 1}
	tStarts := []float32{3}
	tEnds := []float32{7}

	nextRay := uint32(0)
	terminated := []bool{true, true}
	indices := make([]uint32, 2)

	res, err := MarchRaysInference(origins, dirs, tStarts, tEnds, cascade,
		&nextRay, terminated, indices, inferenceDesc(2, 4))
	if err != nil {
		t.Fatalf("MarchRaysInference failed: %v", err)
	}

	if indices[0] != 0 {
		t.Errorf("slot 0 assigned ray %d, want 0", indices[0])
	}
	if indices[1] != DeadSlot {
		t.Errorf("slot 1 assigned ray %d, want DeadSlot", indices[1])
	}
	if res.NSamples[1] != 0 {
		t.Errorf("dead slot produced %d samples, want 0", res.NSamples[1])
	}
}

// Streaming a ray in small chunks must visit the same sample distances as
// marching it to completion in one call.
func TestMarchRaysInference_MatchesBatchMarch(t *testing.T) {
	cascade := fullCascade(t, 2, 16)

	origins := []float32{0.1, -0.2, -5}
	dirs := []float32{0, 0, 1}

	batchDesc := testDesc(1)
	batchDesc.MaxNSamples = 64
	batch, err := MarchRays(origins, dirs, nil, cascade, batchDesc)
	if err != nil {
		t.Fatalf("MarchRays failed: %v", err)
	}
	if batch.TotalSamples != 64 {
		t.Fatalf("batch produced %d samples, want the cap of 64", batch.TotalSamples)
	}

	tStarts := []float32{3} // scene-box entry, matching the batch walk's tNear
	tEnds := []float32{7}
	nextRay := uint32(0)
	terminated := []bool{true}
	indices := make([]uint32, 1)

	var streamed []float32
	for call := 0; call < 8; call++ {
		res, err := MarchRaysInference(origins, dirs, tStarts, tEnds, cascade,
			&nextRay, terminated, indices, inferenceDesc(1, 8))
		if err != nil {
			t.Fatalf("call %d: MarchRaysInference failed: %v", call, err)
		}
		streamed = append(streamed, res.Ts[:res.NSamples[0]]...)
	}

	if len(streamed) != 64 {
		t.Fatalf("streamed %d samples over 8 calls, want 64", len(streamed))
	}
	for i, got := range streamed {
		if got != batch.Ts[i] {
			t.Fatalf("sample %d: streamed t=%v, batch t=%v", i, got, batch.Ts[i])
		}
	}
}

func TestBatchStats(t *testing.T) {
	bs := NewBatchStats(4096, 16)
	if bs.NRays != 256 {
		t.Fatalf("initial NRays = %d, want 256", bs.NRays)
	}

	// Batches consistently producing 32 samples per ray should roughly halve
	// the ray count over time.
	for i := 0; i < 200; i++ {
		bs.Update(bs.NRays, bs.NRays*32, bs.NRays*24)
		bs.Commit(4096)
	}
	if bs.NRays < 120 || bs.NRays > 136 {
		t.Errorf("NRays = %d after convergence, want near 128", bs.NRays)
	}
	if bs.MeanEffectiveSamplesPerRay >= bs.MeanSamplesPerRay {
		t.Errorf("effective mean %v should trail the marched mean %v",
			bs.MeanEffectiveSamplesPerRay, bs.MeanSamplesPerRay)
	}
}
