package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/odejac/internal/ode"
)

var names = map[string]func(ode.JacobianFn) (Integrator, error){
	"euler": func(ode.JacobianFn) (Integrator, error) { return NewEuler(), nil },
	"rk4":   func(ode.JacobianFn) (Integrator, error) { return NewRK4(), nil },
	"backward_euler": func(jac ode.JacobianFn) (Integrator, error) {
		if jac == nil {
			return nil, ErrNoJacobian
		}
		return NewBackwardEuler(jac), nil
	},
}

// New returns the integrator registered under name. Implicit methods use jac.
func New(name string, jac ode.JacobianFn) (Integrator, error) {
	ctor, ok := names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownIntegrator, name, List())
	}
	return ctor(jac)
}

func List() []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsImplicit reports whether the named integrator needs a Jacobian.
func IsImplicit(name string) bool {
	return name == "backward_euler"
}
