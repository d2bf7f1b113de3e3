// Package ode provides the Jacobian utilities implicit ODE solvers build on.
//
// A solver works on structured state: a single array or an ordered
// collection of differently shaped arrays. The package converts that state
// to one flat vector and back, and derives everything else from the flat
// form:
//
//   - [Flatten], [FlattenAs], [Unflatten]: state <-> vector, driven by a [StateShape]
//   - [Vectorize]: adapts a structured right-hand side [Func] into a [VecFunc]
//   - [NewJacobianFn]: builds a [JacobianFn] from a [Source]
//   - [RightMultByJacobian]: computes vec · J
//
// # Jacobian sources
//
// A [Source] is resolved once, when the [JacobianFn] is built:
//
//   - nil or [AutoDiff]: the Jacobian of the vectorized function at the
//     call-time state, computed by a [Differentiator]
//   - [Dense]: a constant (N, N) matrix
//   - [Nested]: a constant grid of blocks, one per pair of state components
//   - [DenseFunc], [NestedFunc]: caller-supplied functions of time and state
//
// # Example
//
//	x0, shape, _ := ode.Flatten(state)
//	fn := ode.Vectorize(rhs, shape)
//	jac, _ := ode.NewJacobianFn(nil, fn, shape, tensor.Float64)
//	vJ, _ := ode.RightMultByJacobian(jac, fn, t, x0, v)
//
// # Thread Safety
//
// Every function in the package is pure. A [JacobianFn] may be shared
// between goroutines; constant sources hand out the same matrix on every
// call, which callers must treat as read-only.
package ode
