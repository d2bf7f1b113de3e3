package ode

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RightMultByJacobian returns v · J, with v a row vector and J the Jacobian
// of fn at time t and flat state x. Element k of the result is
// sum_i v[i] * dfn_i/dx_k.
//
// When jf differentiates fn with a Differentiator that implements
// Gradienter, the product is taken as the gradient of x ↦ v · fn(t, x)
// and the (N, N) matrix is never formed. fn may be nil, in which case the
// function jf was built from is used.
func RightMultByJacobian(jf JacobianFn, fn VecFunc, t float64, x, v []float64) ([]float64, error) {
	n := jf.Size()
	if len(v) != n {
		return nil, shapeErrorf("right mult", fmt.Sprintf("vector of %d", n), len(v))
	}

	if ad, ok := jf.(*autoDiffJacobian); ok {
		if g, ok := ad.diff.(Gradienter); ok {
			if fn == nil {
				fn = ad.fn
			}
			return vectorJacobianProduct(g, fn, t, x, v)
		}
	}

	jac, err := jf.Evaluate(t, x)
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(n, nil)
	out.MulVec(jac.T(), mat.NewVecDense(n, v))
	return out.RawVector().Data, nil
}

// MultByJacobian returns J · v, with v a column vector.
func MultByJacobian(jf JacobianFn, t float64, x, v []float64) ([]float64, error) {
	n := jf.Size()
	if len(v) != n {
		return nil, shapeErrorf("mult", fmt.Sprintf("vector of %d", n), len(v))
	}
	jac, err := jf.Evaluate(t, x)
	if err != nil {
		return nil, err
	}
	out := mat.NewVecDense(n, nil)
	out.MulVec(jac, mat.NewVecDense(n, v))
	return out.RawVector().Data, nil
}

func vectorJacobianProduct(g Gradienter, fn VecFunc, t float64, x, v []float64) ([]float64, error) {
	if err := checkState("right mult", x, len(v)); err != nil {
		return nil, err
	}
	var c capture
	grad := g.Gradient(nil, func(x []float64) float64 {
		dx, err := fn(t, x)
		if err == nil && len(dx) != len(v) {
			err = shapeErrorf("right mult", fmt.Sprintf("%d derivatives", len(v)), len(dx))
		}
		if err != nil {
			c.set(err)
			return math.NaN()
		}
		return floats.Dot(v, dx)
	}, x)
	if err := c.get(); err != nil {
		return nil, err
	}
	return grad, nil
}
