package tensor

import (
	"fmt"
	"strings"
)

// Shape lists the dimensions of an array. An empty shape is a scalar.
type Shape []int

// Size returns the number of elements implied by the shape.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

func (s Shape) Rank() int { return len(s) }

func (s Shape) Validate() error {
	for i, d := range s {
		if d < 0 {
			return fmt.Errorf("%w: dimension %d is negative (%d)", ErrShape, i, d)
		}
	}
	return nil
}

func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
