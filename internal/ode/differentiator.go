package ode

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Differentiator computes the Jacobian of f at x into dst. dst has one row
// per output of f and one column per element of x.
type Differentiator interface {
	Jacobian(dst *mat.Dense, f func(y, x []float64), x []float64)
}

// Gradienter is implemented by differentiators that can take the gradient
// of a scalar function without forming a Jacobian.
type Gradienter interface {
	Gradient(dst []float64, f func(x []float64) float64, x []float64) []float64
}

// FiniteDiff differentiates numerically with gonum's fd package.
// A zero Formula means fd.Central; a zero Step uses the formula's default.
type FiniteDiff struct {
	Formula    fd.Formula
	Step       float64
	Concurrent bool
}

func DefaultFiniteDiff() FiniteDiff {
	return FiniteDiff{Formula: fd.Central}
}

func (d FiniteDiff) formula() fd.Formula {
	if d.Formula.Stencil == nil {
		return fd.Central
	}
	return d.Formula
}

func (d FiniteDiff) Jacobian(dst *mat.Dense, f func(y, x []float64), x []float64) {
	fd.Jacobian(dst, f, x, &fd.JacobianSettings{
		Formula:    d.formula(),
		Step:       d.Step,
		Concurrent: d.Concurrent,
	})
}

func (d FiniteDiff) Gradient(dst []float64, f func(x []float64) float64, x []float64) []float64 {
	return fd.Gradient(dst, f, x, &fd.Settings{
		Formula:    d.formula(),
		Step:       d.Step,
		Concurrent: d.Concurrent,
	})
}
