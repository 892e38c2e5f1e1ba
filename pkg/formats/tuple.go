package formats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/math"
)

// Tuple errors.
var (
	ErrInvalidTuple = errors.New("invalid tuple")
)

// tupleBody extracts the text between the first '(' and the following ')'.
// Text without parentheses is returned trimmed.
func tupleBody(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[i+1:]
		if j := strings.IndexByte(s, ')'); j >= 0 {
			s = s[:j]
		}
	}
	return s
}

func parseFloats(s string, n int) ([]float32, error) {
	body := tupleBody(s)
	if body == "" {
		return nil, fmt.Errorf("%w: empty %q", ErrInvalidTuple, s)
	}
	items := strings.Split(body, ",")
	if len(items) != n {
		return nil, fmt.Errorf("%w: expected %d components in %q", ErrInvalidTuple, n, s)
	}
	out := make([]float32, n)
	for i, item := range items {
		f, err := strconv.ParseFloat(strings.TrimSpace(item), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTuple, s, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// ParseVec3 parses a `(x,y,z)` tuple.
func ParseVec3(s string) (math.Vec3, error) {
	f, err := parseFloats(s, 3)
	if err != nil {
		return math.Vec3{}, err
	}
	return math.Vec3{X: f[0], Y: f[1], Z: f[2]}, nil
}

// ParseVec2 parses a `(u,v)` tuple.
func ParseVec2(s string) (math.Vec2, error) {
	f, err := parseFloats(s, 2)
	if err != nil {
		return math.Vec2{}, err
	}
	return math.Vec2{X: f[0], Y: f[1]}, nil
}

// isPayload reports whether a line consists only of numbers and punctuation,
// like connector vertex data or face indices.
func isPayload(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case strings.ContainsRune(" \t,.-+()eE:", r):
		default:
			return false
		}
	}
	return true
}
