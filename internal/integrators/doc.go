// Package integrators steps ODE systems expressed over flat state vectors.
//
//   - [Euler]: explicit first-order method
//   - [RK4]: classic explicit fourth-order Runge-Kutta
//   - [BackwardEuler]: implicit first-order method solved by Newton
//     iterations on the Jacobian from an [ode.JacobianFn]
//   - [Run]: fixed or adaptive stepping loop producing a [Result]
//
// Integrators keep scratch buffers between steps and are not safe for
// concurrent use.
package integrators
