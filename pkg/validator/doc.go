// Package validator statically checks and repairs generated Python code
// before it is sent to the sandbox.
//
// The checks are structural, not a full parse: balanced brackets outside
// strings and comments, block headers with bodies, and try blocks with
// handlers. Repairs are conservative: a fix is kept only if the repaired
// code passes the structural check, otherwise the original code is
// returned untouched.
package validator
