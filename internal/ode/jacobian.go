package ode

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/san-kum/odejac/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// JacobianFn evaluates the linearization of an ODE right-hand side.
type JacobianFn interface {
	// Evaluate returns the (N, N) Jacobian at time t and flat state x.
	// Constant Jacobians ignore both arguments, accept a nil x and return
	// the same matrix on every call; it must not be modified.
	Evaluate(t float64, x []float64) (*mat.Dense, error)

	// Size returns N, the length of the flat state.
	Size() int

	// Constant reports whether Evaluate ignores time and state.
	Constant() bool
}

// NewJacobianFn resolves src into a JacobianFn for states laid out by
// shape. fn is only required for automatic differentiation. dtype sets the
// precision of dense and nested Jacobians; differentiated Jacobians keep
// the precision of fn.
func NewJacobianFn(src Source, fn VecFunc, shape StateShape, dtype tensor.DType) (JacobianFn, error) {
	n := shape.Size()
	if n == 0 {
		return nil, ErrEmptyState
	}

	switch s := src.(type) {
	case nil:
		return newAutoDiffJacobian(AutoDiff{}, fn, n)
	case AutoDiff:
		return newAutoDiffJacobian(s, fn, n)
	case *AutoDiff:
		if s == nil {
			return newAutoDiffJacobian(AutoDiff{}, fn, n)
		}
		return newAutoDiffJacobian(*s, fn, n)
	case Dense:
		m, err := castDense("dense jacobian", s.M, n, dtype)
		if err != nil {
			return nil, err
		}
		return &constJacobian{m: m}, nil
	case Nested:
		m, err := Assemble(s, shape, dtype)
		if err != nil {
			return nil, err
		}
		return &constJacobian{m: m}, nil
	case DenseFunc:
		if s == nil {
			return nil, ErrNilFunc
		}
		return &denseFuncJacobian{f: s, n: n, dtype: dtype}, nil
	case NestedFunc:
		if s == nil {
			return nil, ErrNilFunc
		}
		return &nestedFuncJacobian{f: s, shape: shape, dtype: dtype}, nil
	}
	return nil, fmt.Errorf("ode: unsupported jacobian source %T", src)
}

// Assemble places the blocks of a nested Jacobian into one dense (N, N)
// matrix. Block (i, j) lands at the offsets of components i and j.
func Assemble(blocks Nested, shape StateShape, dtype tensor.DType) (*mat.Dense, error) {
	n := shape.Size()
	if n == 0 {
		return nil, ErrEmptyState
	}
	k := shape.Len()
	if len(blocks) != k {
		return nil, shapeErrorf("assemble", fmt.Sprintf("%d row blocks", k), len(blocks))
	}

	m := mat.NewDense(n, n, nil)
	for i, row := range blocks {
		if len(row) != k {
			return nil, shapeErrorf("assemble", fmt.Sprintf("%d blocks in row %d", k, i), len(row))
		}
		rb := shape.blocks[i]
		rows := rb.Size()
		for j, b := range row {
			cb := shape.blocks[j]
			cols := cb.Size()
			if b == nil {
				return nil, shapeErrorf("assemble", fmt.Sprintf("block (%d, %d)", i, j), "nil")
			}
			if b.Size() != rows*cols {
				return nil, shapeErrorf("assemble",
					fmt.Sprintf("block (%d, %d) with %d x %d elements", i, j, rows, cols), b.Shape())
			}
			data := b.Data()
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					m.Set(rb.Offset+r, cb.Offset+c, dtype.Round(data[r*cols+c]))
				}
			}
		}
	}
	return m, nil
}

func castDense(op string, a mat.Matrix, n int, dtype tensor.DType) (*mat.Dense, error) {
	if isNilMatrix(a) {
		return nil, shapeErrorf(op, fmt.Sprintf("(%d, %d)", n, n), "nil")
	}
	r, c := a.Dims()
	if r != n || c != n {
		return nil, shapeErrorf(op, fmt.Sprintf("(%d, %d)", n, n), fmt.Sprintf("(%d, %d)", r, c))
	}
	m := mat.NewDense(n, n, nil)
	m.Apply(func(_, _ int, v float64) float64 { return dtype.Round(v) }, a)
	return m, nil
}

// isNilMatrix reports whether a is nil or a typed nil pointer such as a
// (*mat.Dense)(nil) stored in the interface.
func isNilMatrix(a mat.Matrix) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func checkState(op string, x []float64, n int) error {
	if x == nil {
		return ErrNoState
	}
	if len(x) != n {
		return shapeErrorf(op, fmt.Sprintf("%d elements", n), fmt.Sprintf("%d elements", len(x)))
	}
	return nil
}

type constJacobian struct {
	m *mat.Dense
}

func (j *constJacobian) Evaluate(float64, []float64) (*mat.Dense, error) { return j.m, nil }

func (j *constJacobian) Size() int {
	n, _ := j.m.Dims()
	return n
}

func (j *constJacobian) Constant() bool { return true }

type autoDiffJacobian struct {
	fn   VecFunc
	diff Differentiator
	n    int
}

func newAutoDiffJacobian(src AutoDiff, fn VecFunc, n int) (*autoDiffJacobian, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	d := src.Differentiator
	if d == nil {
		d = DefaultFiniteDiff()
	}
	return &autoDiffJacobian{fn: fn, diff: d, n: n}, nil
}

func (j *autoDiffJacobian) Size() int { return j.n }

func (j *autoDiffJacobian) Constant() bool { return false }

func (j *autoDiffJacobian) Evaluate(t float64, x []float64) (*mat.Dense, error) {
	if err := checkState("jacobian", x, j.n); err != nil {
		return nil, err
	}
	var c capture
	m := mat.NewDense(j.n, j.n, nil)
	j.diff.Jacobian(m, func(y, x []float64) {
		dx, err := j.fn(t, x)
		if err == nil && len(dx) != len(y) {
			err = shapeErrorf("jacobian", fmt.Sprintf("%d derivatives", len(y)), len(dx))
		}
		if err != nil {
			c.set(err)
			for i := range y {
				y[i] = math.NaN()
			}
			return
		}
		copy(y, dx)
	}, x)
	if err := c.get(); err != nil {
		return nil, err
	}
	return m, nil
}

type denseFuncJacobian struct {
	f     DenseFunc
	n     int
	dtype tensor.DType
}

func (j *denseFuncJacobian) Size() int { return j.n }

func (j *denseFuncJacobian) Constant() bool { return false }

func (j *denseFuncJacobian) Evaluate(t float64, x []float64) (*mat.Dense, error) {
	if x != nil && len(x) != j.n {
		return nil, shapeErrorf("jacobian", fmt.Sprintf("%d elements", j.n), fmt.Sprintf("%d elements", len(x)))
	}
	a, err := j.f(t, x)
	if err != nil {
		return nil, err
	}
	return castDense("dense jacobian", a, j.n, j.dtype)
}

type nestedFuncJacobian struct {
	f     NestedFunc
	shape StateShape
	dtype tensor.DType
}

func (j *nestedFuncJacobian) Size() int { return j.shape.Size() }

func (j *nestedFuncJacobian) Constant() bool { return false }

func (j *nestedFuncJacobian) Evaluate(t float64, x []float64) (*mat.Dense, error) {
	if err := checkState("jacobian", x, j.shape.Size()); err != nil {
		return nil, err
	}
	s, err := Unflatten(x, j.shape)
	if err != nil {
		return nil, err
	}
	blocks, err := j.f(t, s)
	if err != nil {
		return nil, err
	}
	return Assemble(blocks, j.shape, j.dtype)
}

// capture keeps the first error raised inside a callback that cannot
// return one. The differentiator may call it from several goroutines.
type capture struct {
	mu  sync.Mutex
	err error
}

func (c *capture) set(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *capture) get() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
