package tensor

import (
	"fmt"
	"strings"
)

type DType int

const (
	Float64 DType = iota
	Float32
)

func ParseDType(name string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "float64", "f64", "double":
		return Float64, nil
	case "float32", "f32", "single":
		return Float32, nil
	}
	return Float64, fmt.Errorf("%w: %q", ErrUnknownDType, name)
}

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Round returns v rounded to the precision of d.
func (d DType) Round(v float64) float64 {
	if d == Float32 {
		return float64(float32(v))
	}
	return v
}

// RoundSlice rounds every element of v in place.
func (d DType) RoundSlice(v []float64) {
	if d != Float32 {
		return
	}
	for i := range v {
		v[i] = float64(float32(v[i]))
	}
}

func (d DType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DType) UnmarshalText(text []byte) error {
	parsed, err := ParseDType(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
