package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/odejac/internal/ode"
	"gonum.org/v1/gonum/floats"
)

// Run integrates fn from x0 over cfg.Duration starting at cfg.T0.
func Run(ctx context.Context, integ Integrator, fn ode.VecFunc, x0 []float64, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration/cfg.Dt + 1e-9)
	result := &Result{
		States: make([][]float64, 0, steps+1),
		Times:  make([]float64, 0, steps+1),
	}

	x := clone(x0)
	t := cfg.T0
	end := cfg.T0 + cfg.Duration
	dt := cfg.Dt

	result.States = append(result.States, clone(x))
	result.Times = append(result.Times, t)

	adaptive, canAdapt := integ.(AdaptiveIntegrator)
	for i := 0; ; i++ {
		if cfg.Adaptive && canAdapt {
			if t >= end-1e-12 {
				break
			}
		} else if i >= steps {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var newX []float64
		var err error
		h := dt
		if cfg.Adaptive && canAdapt {
			h = math.Min(dt, end-t)
			var next float64
			newX, next, err = adaptive.StepAdaptive(fn, x, t, h, cfg.Tolerance)
			if h < dt {
				// last step was clipped to the end time
				next = math.Max(next, dt)
			}
			dt = math.Min(next, cfg.MaxDt)
			if err == nil && dt < cfg.MinDt {
				err = ErrStepTooSmall
			}
		} else {
			newX, err = integ.Step(fn, x, t, h)
		}
		if err != nil {
			return result, &StepError{Step: i, Time: t, Wrapped: err}
		}

		if cfg.ValidateState && (floats.HasNaN(newX) || hasInf(newX)) {
			return result, &StepError{Step: i, Time: t, Wrapped: ErrUnstable}
		}

		x = newX
		t += h
		result.StepsTaken++
		result.States = append(result.States, clone(x))
		result.Times = append(result.Times, t)
	}

	if err := ode.AssertIncreasing(result.Times, "times"); err != nil {
		return result, err
	}
	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Adaptive {
		if cfg.Tolerance <= 0 {
			return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", ErrInvalidConfig)
		}
		if cfg.MaxDt <= 0 {
			return fmt.Errorf("%w: max dt must be positive for adaptive stepping", ErrInvalidConfig)
		}
		if err := ode.AssertNonnegative(cfg.MinDt, "min dt"); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func hasInf(x []float64) bool {
	for _, v := range x {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func clone(x []float64) []float64 {
	c := make([]float64, len(x))
	copy(c, x)
	return c
}
