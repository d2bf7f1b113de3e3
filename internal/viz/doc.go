// Package viz renders Jacobians and trajectories for the terminal.
//
//   - [RenderMatrix]: a bordered table of matrix entries, with the block
//     boundaries of a structured state marked
//   - [RenderVector]: a single labelled row
//   - [Plot]: an ASCII line chart of one or more series
//   - [SparklineChart]: a one-line sparkline
package viz
