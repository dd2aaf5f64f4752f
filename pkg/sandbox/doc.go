// Package sandbox runs generated Python code in isolated, ephemeral
// remote environments and reduces their loosely-typed results into a
// fixed outcome shape.
//
// Each execution acquires a fresh sandbox, uploads the stage's input
// dataset, wraps the generated code in a harness that enforces a stable
// I/O contract, runs it, and reads back whatever artifacts the code
// produced. A sandbox is never reused across executions.
//
// Two acquisition modes exist: a static URL pointing at a running
// sandbox server (development), and Kubernetes SandboxClaim CRDs
// (production, see the kubernetes subpackage).
package sandbox
