package ode

import (
	"fmt"

	"github.com/san-kum/odejac/internal/tensor"
)

// State is the structured state of an ODE: either one array or an ordered
// collection of arrays. The order of the parts fixes the vector layout.
type State struct {
	parts  []*tensor.Tensor
	single bool
}

// Single wraps one array as a state.
func Single(t *tensor.Tensor) State {
	return State{parts: []*tensor.Tensor{t}, single: true}
}

// NestedState builds a state from an ordered list of arrays.
func NestedState(parts ...*tensor.Tensor) State {
	p := make([]*tensor.Tensor, len(parts))
	copy(p, parts)
	return State{parts: p}
}

func (s State) IsSingle() bool { return s.single }

func (s State) Len() int { return len(s.parts) }

func (s State) Part(i int) *tensor.Tensor { return s.parts[i] }

// Parts returns the components in layout order.
func (s State) Parts() []*tensor.Tensor {
	p := make([]*tensor.Tensor, len(s.parts))
	copy(p, s.parts)
	return p
}

// Tensor returns the array of a single state, or nil for a nested one.
func (s State) Tensor() *tensor.Tensor {
	if !s.single {
		return nil
	}
	return s.parts[0]
}

// Replace returns a copy of s with part i swapped for t.
func (s State) Replace(i int, t *tensor.Tensor) State {
	p := s.Parts()
	p[i] = t
	return State{parts: p, single: s.single}
}

// Equal reports whether both states have the same structure and values.
func (s State) Equal(other State) bool {
	if s.single != other.single || len(s.parts) != len(other.parts) {
		return false
	}
	for i := range s.parts {
		if !s.parts[i].Equal(other.parts[i]) {
			return false
		}
	}
	return true
}

// Block locates one state component inside the flat vector.
type Block struct {
	Offset int
	Shape  tensor.Shape
}

func (b Block) Size() int { return b.Shape.Size() }

// StateShape is the layout of a flattened state: an ordered list of
// (offset, shape) blocks. It is computed once per solve and never mutated.
type StateShape struct {
	blocks []Block
	size   int
	single bool
}

// SingleShape describes a state made of one array.
func SingleShape(shape tensor.Shape) StateShape {
	return newStateShape([]tensor.Shape{shape}, true)
}

// NestedShape describes a state made of an ordered list of arrays.
func NestedShape(shapes ...tensor.Shape) StateShape {
	return newStateShape(shapes, false)
}

func newStateShape(shapes []tensor.Shape, single bool) StateShape {
	ss := StateShape{blocks: make([]Block, len(shapes)), single: single}
	for i, sh := range shapes {
		ss.blocks[i] = Block{Offset: ss.size, Shape: sh.Clone()}
		ss.size += sh.Size()
	}
	return ss
}

// ShapeOf records the layout of s.
func ShapeOf(s State) (StateShape, error) {
	if len(s.parts) == 0 && s.single {
		return StateShape{}, shapeErrorf("shape", "one array", "none")
	}
	shapes := make([]tensor.Shape, len(s.parts))
	for i, p := range s.parts {
		if p == nil {
			return StateShape{}, &ShapeError{Op: "shape", Want: "array", Got: "nil", Err: fmt.Errorf("component %d", i)}
		}
		shapes[i] = p.Shape()
	}
	return newStateShape(shapes, s.single), nil
}

func (s StateShape) IsSingle() bool { return s.single }

// Len returns the number of blocks.
func (s StateShape) Len() int { return len(s.blocks) }

// Size returns the length of the flat vector.
func (s StateShape) Size() int { return s.size }

func (s StateShape) Block(i int) Block {
	b := s.blocks[i]
	b.Shape = b.Shape.Clone()
	return b
}

func (s StateShape) Blocks() []Block {
	out := make([]Block, len(s.blocks))
	for i := range s.blocks {
		out[i] = s.Block(i)
	}
	return out
}

func (s StateShape) Equal(other StateShape) bool {
	if s.single != other.single || len(s.blocks) != len(other.blocks) {
		return false
	}
	for i := range s.blocks {
		if !s.blocks[i].Shape.Equal(other.blocks[i].Shape) {
			return false
		}
	}
	return true
}

func (s StateShape) String() string {
	if s.single && len(s.blocks) == 1 {
		return s.blocks[0].Shape.String()
	}
	shapes := make([]tensor.Shape, len(s.blocks))
	for i, b := range s.blocks {
		shapes[i] = b.Shape
	}
	return fmt.Sprint(shapes)
}

// Flatten concatenates the components of s, in order, into one vector and
// returns the layout needed to undo it.
func Flatten(s State) ([]float64, StateShape, error) {
	shape, err := ShapeOf(s)
	if err != nil {
		return nil, StateShape{}, err
	}
	return concat(s, shape.size), shape, nil
}

// FlattenAs flattens s against a previously recorded layout. The structure
// and every component shape of s must match it.
func FlattenAs(s State, shape StateShape) ([]float64, error) {
	got, err := ShapeOf(s)
	if err != nil {
		return nil, err
	}
	if !got.Equal(shape) {
		return nil, shapeErrorf("flatten", shape, got)
	}
	return concat(s, shape.size), nil
}

func concat(s State, size int) []float64 {
	vec := make([]float64, 0, size)
	for _, p := range s.parts {
		vec = p.AppendTo(vec)
	}
	return vec
}

// Unflatten splits vec into the blocks of shape and reshapes each one.
// A single shape yields a single-array state.
func Unflatten(vec []float64, shape StateShape) (State, error) {
	if len(vec) != shape.size {
		return State{}, shapeErrorf("unflatten", fmt.Sprintf("%d elements", shape.size), fmt.Sprintf("%d elements", len(vec)))
	}
	parts := make([]*tensor.Tensor, len(shape.blocks))
	for i, b := range shape.blocks {
		t, err := tensor.New(b.Shape, vec[b.Offset:b.Offset+b.Size()])
		if err != nil {
			return State{}, &ShapeError{Op: "unflatten", Want: b.Shape.String(), Got: "invalid block", Err: err}
		}
		parts[i] = t
	}
	return State{parts: parts, single: shape.single}, nil
}
