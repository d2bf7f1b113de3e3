package integrators

import (
	"errors"
	"fmt"

	"github.com/san-kum/odejac/internal/ode"
)

var (
	// ErrInvalidConfig indicates a non-positive step, duration or tolerance.
	ErrInvalidConfig = errors.New("integrators: invalid config")

	// ErrUnstable indicates the state became NaN or Inf.
	ErrUnstable = errors.New("integrators: state diverged (NaN or Inf detected)")

	// ErrNoConvergence indicates Newton iterations did not converge.
	ErrNoConvergence = errors.New("integrators: newton iterations did not converge")

	// ErrSingular indicates the Newton matrix I - dt*J could not be solved.
	ErrSingular = errors.New("integrators: singular newton matrix")

	// ErrStepTooSmall indicates adaptive stepping fell below the minimum step.
	ErrStepTooSmall = errors.New("integrators: adaptive timestep below minimum")

	// ErrNoJacobian indicates an implicit method without a Jacobian.
	ErrNoJacobian = errors.New("integrators: implicit method needs a jacobian")

	// ErrUnknownIntegrator indicates an unregistered integrator name.
	ErrUnknownIntegrator = errors.New("integrators: unknown integrator")
)

type Integrator interface {
	Step(fn ode.VecFunc, x []float64, t, dt float64) ([]float64, error)
}

// AdaptiveIntegrator also proposes the next step size.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(fn ode.VecFunc, x []float64, t, dt, tol float64) ([]float64, float64, error)
}

type Config struct {
	T0            float64
	Dt            float64
	Duration      float64
	Tolerance     float64
	MinDt         float64
	MaxDt         float64
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      1.0,
		Tolerance:     1e-6,
		MinDt:         1e-8,
		MaxDt:         0.1,
		ValidateState: true,
	}
}

type Result struct {
	States     [][]float64
	Times      []float64
	StepsTaken int
}

// Final returns the last recorded state.
func (r *Result) Final() []float64 {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// StepError wraps an error with the step it happened on.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
