package grid

import (
	"errors"
	"testing"

	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/launch"
)

func TestEncodeMorton3_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		x, y, z  uint32
		expected uint32
	}{
		{name: "Origin", x: 0, y: 0, z: 0, expected: 0},
		{name: "Unit x", x: 1, y: 0, z: 0, expected: 1},
		{name: "Unit y", x: 0, y: 1, z: 0, expected: 2},
		{name: "Unit z", x: 0, y: 0, z: 1, expected: 4},
		{name: "All ones", x: 1, y: 1, z: 1, expected: 7},
		{name: "Full low octant", x: 3, y: 3, z: 3, expected: 63},
		{name: "Axis stride", x: 2, y: 0, z: 0, expected: 8},
		{name: "Max 10-bit coords", x: 1023, y: 1023, z: 1023, expected: 1<<30 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeMorton3(tt.x, tt.y, tt.z); got != tt.expected {
				t.Errorf("EncodeMorton3(%d, %d, %d) = %d, want %d", tt.x, tt.y, tt.z, got, tt.expected)
			}
		})
	}
}

func TestMorton3_RoundTripExhaustive(t *testing.T) {
	// Every coordinate in a small grid round-trips exactly.
	const g = 16
	for z := uint32(0); z < g; z++ {
		for y := uint32(0); y < g; y++ {
			for x := uint32(0); x < g; x++ {
				idx := EncodeMorton3(x, y, z)
				if idx >= g*g*g {
					t.Fatalf("EncodeMorton3(%d, %d, %d) = %d, out of range [0, %d)", x, y, z, idx, g*g*g)
				}
				gx, gy, gz := DecodeMorton3(idx)
				if gx != x || gy != y || gz != z {
					t.Fatalf("DecodeMorton3(%d) = (%d, %d, %d), want (%d, %d, %d)", idx, gx, gy, gz, x, y, z)
				}
			}
		}
	}
}

func TestMorton3_RoundTripSampledG128(t *testing.T) {
	// Stride through the full 128^3 domain rather than enumerating it.
	const g = 128
	for z := uint32(0); z < g; z += 7 {
		for y := uint32(0); y < g; y += 5 {
			for x := uint32(0); x < g; x += 3 {
				gx, gy, gz := DecodeMorton3(EncodeMorton3(x, y, z))
				if gx != x || gy != y || gz != z {
					t.Fatalf("round trip of (%d, %d, %d) gave (%d, %d, %d)", x, y, z, gx, gy, gz)
				}
			}
		}
	}
}

func TestMorton3_BulkKernels(t *testing.T) {
	coords := []uint32{
		0, 0, 0,
		1, 0, 0,
		3, 3, 3,
		5, 2, 7,
	}
	n := len(coords) / 3
	indices := make([]uint32, n)
	desc := core.Morton3DDesc{Length: uint32(n)}

	if err := Morton3D(coords, indices, desc); err != nil {
		t.Fatalf("Morton3D failed: %v", err)
	}
	for i := 0; i < n; i++ {
		want := EncodeMorton3(coords[3*i], coords[3*i+1], coords[3*i+2])
		if indices[i] != want {
			t.Errorf("entry %d: got index %d, want %d", i, indices[i], want)
		}
	}

	decoded := make([]uint32, 3*n)
	if err := Morton3DInvert(indices, decoded, desc); err != nil {
		t.Fatalf("Morton3DInvert failed: %v", err)
	}
	for i := range coords {
		if decoded[i] != coords[i] {
			t.Errorf("decoded[%d] = %d, want %d", i, decoded[i], coords[i])
		}
	}
}

func TestMorton3_SizeMismatchIsConfigError(t *testing.T) {
	desc := core.Morton3DDesc{Length: 4}
	err := Morton3D(make([]uint32, 3), make([]uint32, 4), desc)
	if err == nil {
		t.Fatal("expected error for short coords buffer")
	}
	var ce *launch.ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("expected *launch.ConfigError, got %T: %v", err, err)
	}
}
