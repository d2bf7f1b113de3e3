// Package tensor provides the small array substrate used by the ODE
// utilities: shapes, immutable row-major tensors and floating-point
// precision selection.
//
//   - [Shape]: dimensions of an array, with element counting
//   - [Tensor]: immutable row-major array of float64 values
//   - [DType]: precision the values are rounded to on [Tensor.Cast]
//
// Values are always stored as float64. A Float32 dtype only rounds values
// to single precision; arithmetic stays in float64.
package tensor
