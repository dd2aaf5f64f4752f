// Package transport defines the handler contract and middleware chain for
// the datakiln HTTP transport layer.
//
// The transport layer bridges external clients and the pipeline
// orchestrator. It deserializes incoming requests, dispatches them to the
// Pipeline interface, and serializes results back to the client inside the
// JSON envelope defined in pkg/api.
//
// # Middleware
//
// Middleware operates at the http.Handler level and wraps the whole route
// table with cross-cutting concerns: panic recovery, request ID assignment
// (X-Request-ID), structured logging via log/slog, and Prometheus request
// metrics from pkg/observability.
//
// # Run guard
//
// Sandbox executions are slow and mutate experiment state, so the package
// provides a RunGuard that admits at most one execution per experiment at
// a time. Concurrent execution requests for the same experiment are
// rejected with a conflict.
package transport
