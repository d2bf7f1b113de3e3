package integrators

import (
	"math"
	"testing"
)

func oscillator(_ float64, x []float64) ([]float64, error) {
	return []float64{x[1], -x[0]}, nil
}

func TestRK4Accuracy(t *testing.T) {
	integ := NewRK4()

	x := []float64{1.0, 0.0}
	dt := 0.01
	steps := 100

	var err error
	for i := 0; i < steps; i++ {
		x, err = integ.Step(oscillator, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerVsRK4(t *testing.T) {
	euler := NewEuler()
	rk4 := NewRK4()

	xe := []float64{1.0, 0.0}
	xr := []float64{1.0, 0.0}
	dt := 0.01
	for i := 0; i < 100; i++ {
		xe, _ = euler.Step(oscillator, xe, float64(i)*dt, dt)
		xr, _ = rk4.Step(oscillator, xr, float64(i)*dt, dt)
	}

	want := math.Cos(1)
	if math.Abs(xr[0]-want) >= math.Abs(xe[0]-want) {
		t.Errorf("rk4 error %e not below euler error %e", math.Abs(xr[0]-want), math.Abs(xe[0]-want))
	}
}

func TestStepRejectsShortDerivative(t *testing.T) {
	short := func(float64, []float64) ([]float64, error) { return []float64{1}, nil }

	if _, err := NewRK4().Step(short, []float64{1, 2}, 0, 0.1); err == nil {
		t.Error("rk4: expected error for short derivative")
	}
	if _, err := NewEuler().Step(short, []float64{1, 2}, 0, 0.1); err == nil {
		t.Error("euler: expected error for short derivative")
	}
}
