package tensor

import (
	"fmt"
	"math"
)

// Tensor is an immutable row-major array.
type Tensor struct {
	shape Shape
	data  []float64
}

// New returns a tensor of the given shape holding a copy of data.
func New(shape Shape, data []float64) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrShape, shape, shape.Size(), len(data))
	}
	d := make([]float64, len(data))
	copy(d, data)
	return &Tensor{shape: shape.Clone(), data: d}, nil
}

// MustNew is like New but panics on error. Intended for literals in tests
// and presets.
func MustNew(shape Shape, data []float64) *Tensor {
	t, err := New(shape, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Vector returns a rank-1 tensor.
func Vector(data ...float64) *Tensor {
	return MustNew(Shape{len(data)}, data)
}

func Scalar(v float64) *Tensor {
	return &Tensor{shape: Shape{}, data: []float64{v}}
}

func Zeros(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Tensor{shape: shape.Clone(), data: make([]float64, shape.Size())}, nil
}

func (t *Tensor) Shape() Shape { return t.shape.Clone() }

func (t *Tensor) Size() int { return len(t.data) }

// Data returns a copy of the row-major values.
func (t *Tensor) Data() []float64 {
	d := make([]float64, len(t.data))
	copy(d, t.data)
	return d
}

// AppendTo appends the row-major values to dst.
func (t *Tensor) AppendTo(dst []float64) []float64 {
	return append(dst, t.data...)
}

// At returns the element at the given multi-index.
func (t *Tensor) At(idx ...int) float64 {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d for shape %v", len(idx), t.shape))
	}
	off := 0
	for i, k := range idx {
		if k < 0 || k >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off = off*t.shape[i] + k
	}
	return t.data[off]
}

// Reshape returns a tensor sharing no storage with t, laid out in shape.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.Size() != len(t.data) {
		return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.shape, shape)
	}
	return New(shape, t.data)
}

func (t *Tensor) Cast(dtype DType) *Tensor {
	c := t.Clone()
	dtype.RoundSlice(c.data)
	return c
}

func (t *Tensor) Clone() *Tensor {
	d := make([]float64, len(t.data))
	copy(d, t.data)
	return &Tensor{shape: t.shape.Clone(), data: d}
}

// Equal reports whether both tensors have the same shape and values.
func (t *Tensor) Equal(other *Tensor) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i := range t.data {
		if t.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

func (t *Tensor) IsValid() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v%v", t.shape, t.data)
}
