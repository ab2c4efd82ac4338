package core

import "testing"

func TestStepSize(t *testing.T) {
	const bound = 2.0
	const portion = 0.01

	tests := []struct {
		name string
		t    float32
		want float32
	}{
		{"near origin clamps to minimum", 0, MinStepSize()},
		{"below minimum clamps up", 0.05, MinStepSize()},
		{"linear region", 0.5, 0.5 * portion},
		{"far away clamps to maximum", 1e6, MaxStepSize(bound)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StepSize(tt.t, portion, bound)
			if got != tt.want {
				t.Errorf("StepSize(%v, %v, %v) = %v, want %v", tt.t, portion, bound, got, tt.want)
			}
		})
	}
}

func TestStepSizeBounds(t *testing.T) {
	if min, max := MinStepSize(), MaxStepSize(1); min != max/2 {
		t.Errorf("for bound 1, MaxStepSize should be twice MinStepSize: min=%v max=%v", min, max)
	}
	if got := MaxStepSize(4); got != 4*MaxStepSize(1) {
		t.Errorf("MaxStepSize must scale linearly with the bound: got %v", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float32
		want      float32
	}{
		{"inside range", 0.5, 0, 1, 0.5},
		{"below range", -2, 0, 1, 0},
		{"above range", 7, 0, 1, 1},
		{"at lower edge", 0, 0, 1, 0},
		{"at upper edge", 1, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}
