package math

import (
	"testing"
)

func TestVec3Mul(t *testing.T) {
	got := Vec3{1, 2, 3}.Mul(Vec3{2, 0.5, -1})
	want := Vec3{2, 1, -3}
	if got != want {
		t.Errorf("Vec3.Mul() = %v, want %v", got, want)
	}
}

func TestVec3Distance(t *testing.T) {
	got := Vec3{0, 0, 0}.Distance(Vec3{3, 4, 0})
	if got != 5 {
		t.Errorf("Vec3.Distance() = %v, want 5", got)
	}
}

func TestVec3Axis(t *testing.T) {
	v := Vec3{7, 8, 9}
	tests := []struct {
		axis int
		want float32
	}{
		{0, 7},
		{1, 8},
		{2, 9},
	}
	for _, tt := range tests {
		if got := v.Axis(tt.axis); got != tt.want {
			t.Errorf("Axis(%d) = %v, want %v", tt.axis, got, tt.want)
		}
	}
}

func TestVec3Array(t *testing.T) {
	got := Vec3{1.5, -2, 0}.Array()
	want := [3]float64{1.5, -2, 0}
	if got != want {
		t.Errorf("Vec3.Array() = %v, want %v", got, want)
	}
}
