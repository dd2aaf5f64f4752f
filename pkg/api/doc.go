// Package api defines the wire-level types shared across the pipeline.
//
// This package provides the data types exchanged between the HTTP layer,
// the code generator, the sandbox executor, and the storage backends:
// pipeline kinds, outcome classifications, response envelopes, the error
// taxonomy, and the experiment and execution records persisted between
// pipeline stages.
//
// The package has zero external dependencies beyond ID generation and
// performs no I/O.
//
// Core types:
//   - [Kind]: Pipeline stage (preprocess, train, tune)
//   - [GeneratedArtifact]: Validated code produced by the generator
//   - [ExecutionResult]: Outcome of one sandbox execution
//   - [Classification]: Four-way outcome classification
//   - [Experiment]: Persistent record tying a dataset to its artifacts
//   - [APIError]: Structured error with type, code, param, and message
package api
