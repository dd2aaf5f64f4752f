// Package pipeline orchestrates the three workflows: preprocessing,
// training, and tuning. Each workflow generates Python code for the
// experiment's dataset, executes it in an ephemeral sandbox, classifies
// the outcome four ways, and persists the artifacts that future stages
// consume.
//
// The four-way classification is the orchestrator's core contribution:
// "ran fine, produced nothing" is never collapsed into either success
// or failure, because callers need to distinguish "retry with different
// code" from "fix your network" from "this actually worked".
package pipeline
