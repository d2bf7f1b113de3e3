package ode

import (
	"fmt"
	"math"
)

// NextStepSize proposes the step after one whose error ratio (estimated
// error over tolerance) was errorRatio, for a method of the given order.
// The change is limited to [minFactor, maxFactor] times the current step.
func NextStepSize(step float64, order int, errorRatio, safety, minFactor, maxFactor float64) float64 {
	factor := math.Pow(errorRatio, -1/float64(order+1))
	return step * math.Min(math.Max(safety*factor, minFactor), maxFactor)
}

// AssertIncreasing returns ErrNotIncreasing if values is not strictly
// increasing.
func AssertIncreasing(values []float64, name string) error {
	for i := 1; i < len(values); i++ {
		if !(values[i] > values[i-1]) {
			return fmt.Errorf("%s: %w (index %d: %g after %g)", name, ErrNotIncreasing, i, values[i], values[i-1])
		}
	}
	return nil
}

func AssertNonnegative(v float64, name string) error {
	if v < 0 || math.IsNaN(v) {
		return fmt.Errorf("%s: %w (%g)", name, ErrNegative, v)
	}
	return nil
}
