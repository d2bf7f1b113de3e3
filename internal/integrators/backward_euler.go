package integrators

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/odejac/internal/ode"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BackwardEuler solves y = x + dt*f(t+dt, y) with Newton iterations.
// Each iteration linearizes f with Jacobian and solves
// (I - dt*J) delta = y - x - dt*f(t+dt, y).
type BackwardEuler struct {
	Jacobian ode.JacobianFn
	Tol      float64
	MaxIter  int

	safety   float64
	minScale float64
	maxScale float64
	pred     *Euler
}

func NewBackwardEuler(jac ode.JacobianFn) *BackwardEuler {
	return &BackwardEuler{
		Jacobian: jac,
		Tol:      1e-10,
		MaxIter:  20,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		pred:     NewEuler(),
	}
}

func (b *BackwardEuler) Step(fn ode.VecFunc, x []float64, t, dt float64) ([]float64, error) {
	if b.Jacobian == nil {
		return nil, ErrNoJacobian
	}
	n := len(x)
	if b.Jacobian.Size() != n {
		return nil, &ode.ShapeError{Op: "backward euler", Want: fmt.Sprint(b.Jacobian.Size()), Got: fmt.Sprint(n)}
	}

	y, err := b.pred.Step(fn, x, t, dt)
	if err != nil {
		return nil, err
	}

	g := make([]float64, n)
	for iter := 0; iter < b.MaxIter; iter++ {
		f, err := fn(t+dt, y)
		if err != nil {
			return nil, err
		}
		for i := range g {
			g[i] = y[i] - x[i] - dt*f[i]
		}

		jac, err := b.Jacobian.Evaluate(t+dt, y)
		if err != nil {
			return nil, err
		}
		var a mat.Dense
		a.Scale(-dt, jac)
		for i := 0; i < n; i++ {
			a.Set(i, i, a.At(i, i)+1)
		}

		var delta mat.VecDense
		if err := delta.SolveVec(&a, mat.NewVecDense(n, g)); err != nil {
			var cond mat.Condition
			if errors.Is(err, mat.ErrSingular) || errors.As(err, &cond) {
				return nil, fmt.Errorf("%w: newton iteration %d: %v", ErrSingular, iter, err)
			}
			return nil, fmt.Errorf("newton iteration %d: %w", iter, err)
		}
		d := delta.RawVector().Data
		floats.Sub(y, d)

		// Both the update and the residual it was computed from must be small.
		tol := b.Tol * (1 + floats.Norm(y, math.Inf(1)))
		if floats.Norm(d, math.Inf(1)) <= tol && floats.Norm(g, math.Inf(1)) <= tol {
			return y, nil
		}
	}
	return nil, ErrNoConvergence
}

// StepAdaptive takes a backward Euler step and estimates its local error
// from the gap to the explicit Euler predictor.
func (b *BackwardEuler) StepAdaptive(fn ode.VecFunc, x []float64, t, dt, tol float64) ([]float64, float64, error) {
	y, err := b.Step(fn, x, t, dt)
	if err != nil {
		return nil, 0, err
	}
	pred, err := b.pred.Step(fn, x, t, dt)
	if err != nil {
		return nil, 0, err
	}

	errEst := 0.5 * floats.Distance(y, pred, math.Inf(1))
	scale := tol * (1 + floats.Norm(x, math.Inf(1)))
	dtNew := ode.NextStepSize(dt, 1, errEst/scale, b.safety, b.minScale, b.maxScale)
	return y, dtNew, nil
}
