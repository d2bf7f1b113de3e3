package ode

import "fmt"

// Func is a structured ODE right-hand side: it returns dstate/dt, shaped
// like the state it was given.
type Func func(t float64, s State) (State, error)

// VecFunc is a right-hand side over flat state vectors.
type VecFunc func(t float64, x []float64) ([]float64, error)

// Vectorize adapts fn to flat vectors laid out by shape. The derivative fn
// returns must have the same layout as the state.
func Vectorize(fn Func, shape StateShape) VecFunc {
	return func(t float64, x []float64) ([]float64, error) {
		s, err := Unflatten(x, shape)
		if err != nil {
			return nil, err
		}
		ds, err := fn(t, s)
		if err != nil {
			return nil, err
		}
		dx, err := FlattenAs(ds, shape)
		if err != nil {
			return nil, fmt.Errorf("derivative: %w", err)
		}
		return dx, nil
	}
}
