package integrators

import "github.com/san-kum/odejac/internal/ode"

type RK4 struct {
	k1, k2, k3, k4 []float64
	scratch        []float64
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make([]float64, n)
		r.k2 = make([]float64, n)
		r.k3 = make([]float64, n)
		r.k4 = make([]float64, n)
		r.scratch = make([]float64, n)
	}
}

func (r *RK4) Step(fn ode.VecFunc, x []float64, t, dt float64) ([]float64, error) {
	n := len(x)
	r.ensureScratch(n)

	if err := r.stage(fn, r.k1, x, nil, 0, t); err != nil {
		return nil, err
	}
	if err := r.stage(fn, r.k2, x, r.k1, dt*0.5, t+dt*0.5); err != nil {
		return nil, err
	}
	if err := r.stage(fn, r.k3, x, r.k2, dt*0.5, t+dt*0.5); err != nil {
		return nil, err
	}
	if err := r.stage(fn, r.k4, x, r.k3, dt, t+dt); err != nil {
		return nil, err
	}

	result := make([]float64, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result, nil
}

// stage evaluates fn at x + h*k into dst.
func (r *RK4) stage(fn ode.VecFunc, dst, x, k []float64, h, t float64) error {
	in := x
	if k != nil {
		for i := range x {
			r.scratch[i] = x[i] + h*k[i]
		}
		in = r.scratch
	}
	d, err := fn(t, in)
	if err != nil {
		return err
	}
	if len(d) != len(dst) {
		return &ode.ShapeError{Op: "rk4", Want: "derivative of state length", Got: "different length"}
	}
	copy(dst, d)
	return nil
}
