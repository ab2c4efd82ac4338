package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFogFieldDensity(t *testing.T) {
	field := newFogField(1)

	tests := []struct {
		name  string
		point mgl32.Vec3
		check func(t *testing.T, density float32)
	}{
		{
			name:  "dense at the origin",
			point: mgl32.Vec3{0, 0, 0},
			check: func(t *testing.T, d float32) {
				if d < 7 {
					t.Errorf("density at origin = %v, want the fog core near 8", d)
				}
			},
		},
		{
			name:  "shell peak at radius 0.8",
			point: mgl32.Vec3{0.8, 0, 0},
			check: func(t *testing.T, d float32) {
				if d < 10 {
					t.Errorf("density at the shell = %v, want near 12", d)
				}
			},
		},
		{
			name:  "near vacuum far outside",
			point: mgl32.Vec3{3, 3, 3},
			check: func(t *testing.T, d float32) {
				if d > 0.001 {
					t.Errorf("density far outside = %v, want near 0", d)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, field.Density(tt.point))
		})
	}
}

func TestBuildCascade(t *testing.T) {
	field := newFogField(1)
	cascade, err := buildCascade(field, 2, 16, 1)
	if err != nil {
		t.Fatalf("buildCascade failed: %v", err)
	}

	if got, want := len(cascade.Bitfield), 2*16*16*16/8; got != want {
		t.Fatalf("bitfield length = %d, want %d", got, want)
	}

	// The fog core keeps the cell at the origin occupied, and the corners of
	// the outer level sit in vacuum.
	if !cascade.Occupied(0, mgl32.Vec3{0, 0, 0}, 1) {
		t.Error("origin cell should be occupied by the fog core")
	}
	if cascade.Occupied(1, mgl32.Vec3{1.9, 1.9, 1.9}, 1) {
		t.Error("outer corner cell should be empty")
	}

	var occupied int
	for _, b := range cascade.Bitfield {
		for ; b != 0; b &= b - 1 {
			occupied++
		}
	}
	if occupied == 0 || occupied == 8*len(cascade.Bitfield) {
		t.Errorf("occupancy should be partial, got %d of %d cells", occupied, 8*len(cascade.Bitfield))
	}
}

func TestCameraRays(t *testing.T) {
	const width, height = 8, 6
	origins, dirs := cameraRays(width, height, 1)

	if len(origins) != 3*width*height || len(dirs) != 3*width*height {
		t.Fatalf("got %d origins and %d dirs, want %d each", len(origins), len(dirs), 3*width*height)
	}

	for r := 0; r < width*height; r++ {
		if origins[3*r] != 0 || origins[3*r+1] != 0 || origins[3*r+2] != 3 {
			t.Fatalf("ray %d origin = (%v, %v, %v), want the eye at (0, 0, 3)",
				r, origins[3*r], origins[3*r+1], origins[3*r+2])
		}
		d := mgl32.Vec3{dirs[3*r], dirs[3*r+1], dirs[3*r+2]}
		if diff := d.Len() - 1; diff < -1e-5 || diff > 1e-5 {
			t.Fatalf("ray %d direction length = %v, want 1", r, d.Len())
		}
		if d[2] >= 0 {
			t.Fatalf("ray %d points away from the scene: dz = %v", r, d[2])
		}
	}
}

func TestToByte(t *testing.T) {
	tests := []struct {
		name string
		v    float32
		want uint8
	}{
		{"black", 0, 0},
		{"white", 1, 255},
		{"over-range clamps", 2.5, 255},
		{"negative clamps", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toByte(tt.v); got != tt.want {
				t.Errorf("toByte(%v) = %d, want %d", tt.v, got, tt.want)
			}
		})
	}
}
