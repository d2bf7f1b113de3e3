package integrators

import "github.com/san-kum/odejac/internal/ode"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(fn ode.VecFunc, x []float64, t, dt float64) ([]float64, error) {
	dx, err := fn(t, x)
	if err != nil {
		return nil, err
	}
	if len(dx) != len(x) {
		return nil, &ode.ShapeError{Op: "euler", Want: "derivative of state length", Got: "different length"}
	}
	result := make([]float64, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result, nil
}
