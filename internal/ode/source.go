package ode

import (
	"github.com/san-kum/odejac/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Source selects where a Jacobian comes from. A nil Source behaves like
// AutoDiff{}.
type Source interface {
	isSource()
}

// AutoDiff differentiates the vectorized right-hand side at the state the
// Jacobian is evaluated at. A nil Differentiator uses DefaultFiniteDiff.
type AutoDiff struct {
	Differentiator Differentiator
}

// Dense is a constant (N, N) Jacobian.
type Dense struct {
	M mat.Matrix
}

// DenseFunc returns the (N, N) Jacobian at time t and flat state x.
type DenseFunc func(t float64, x []float64) (mat.Matrix, error)

// Nested is a constant block Jacobian indexed [row block][column block].
// Block (i, j) holds d(derivative of component i)/d(component j); any
// shape whose element count is size(i)*size(j) is accepted and read in
// row-major order.
type Nested [][]*tensor.Tensor

// NestedFunc returns the block Jacobian at time t and state s.
type NestedFunc func(t float64, s State) (Nested, error)

func (AutoDiff) isSource()   {}
func (Dense) isSource()      {}
func (DenseFunc) isSource()  {}
func (Nested) isSource()     {}
func (NestedFunc) isSource() {}
