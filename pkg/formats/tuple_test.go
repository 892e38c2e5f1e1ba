package formats

import (
	"errors"
	"testing"

	"github.com/Faultbox/vf3-assembler/pkg/math"
)

func TestParseVec3(t *testing.T) {
	tests := []struct {
		in      string
		want    math.Vec3
		wantErr bool
	}{
		{"(1,2,3)", math.Vec3{X: 1, Y: 2, Z: 3}, false},
		{" ( -0.5, 1e1 ,+2 ) ", math.Vec3{X: -0.5, Y: 10, Z: 2}, false},
		{"1,2,3", math.Vec3{X: 1, Y: 2, Z: 3}, false},
		{"(1,2)", math.Vec3{}, true},
		{"(1,x,3)", math.Vec3{}, true},
		{"()", math.Vec3{}, true},
		{"", math.Vec3{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVec3(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTuple) {
					t.Errorf("expected ErrInvalidTuple, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseVec3(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseVec2(t *testing.T) {
	got, err := ParseVec2("(0.25,0.75)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (math.Vec2{X: 0.25, Y: 0.75}) {
		t.Errorf("got %v", got)
	}
	if _, err := ParseVec2("(1,2,3)"); !errors.Is(err, ErrInvalidTuple) {
		t.Errorf("expected ErrInvalidTuple, got %v", err)
	}
}

func TestIsPayload(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0,1,2:0", true},
		{"(1.5,-2,3e-2)", true},
		{"body:ciel.body", false},
		{"class:upper", false},
	}
	for _, tt := range tests {
		if got := isPayload(tt.in); got != tt.want {
			t.Errorf("isPayload(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
