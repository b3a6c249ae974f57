// Package dynamo provides the primitives shared by the modular simulator.
//
// The package defines the numeric and bookkeeping types every other package
// builds on:
//
//   - [RVec]: a 3-component real vector, one per atom
//   - [Matrix]: a 3x3 box matrix
//   - [Step], [Time]: the discrete step counter and simulated time
//   - [ContractViolation]: panics raised when elements break the loop contract
//   - [ParallelFor]: disjoint index-range splitting for bulk copies
//
// # Errors
//
// Recoverable failures are returned as errors and match the sentinel values in
// this package via errors.Is. Programming-contract violations are not errors:
// they panic with a *ContractViolation and are never recovered by the loop.
//
// # Thread Safety
//
// Nothing here is synchronized. A simulator runs on one goroutine per rank;
// only [ParallelFor] fans work out, and its callers must write disjoint ranges.
package dynamo
