package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrFileNotFound is returned by Sandbox.ReadFile when the named file
// does not exist in the sandbox working directory.
var ErrFileNotFound = errors.New("file not found in sandbox")

// RunOptions bound one code run inside a sandbox.
type RunOptions struct {
	// Timeout is the maximum wall-clock duration for the run. The
	// sandbox server enforces it; zero applies the server default.
	Timeout time.Duration

	// Requirements are Python packages to install before the run.
	// Installed packages persist for the lifetime of the sandbox.
	Requirements []string
}

// RunResult is the outcome of one code run. Raw holds the sandbox
// server's response body verbatim; its shape is not guaranteed stable
// across server versions, so Stdout and Stderr are filled through a
// fallback extraction chain rather than strict decoding.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Raw      json.RawMessage
}

// Sandbox is a handle to one ephemeral execution environment. All
// file names are relative to the sandbox working directory.
type Sandbox interface {
	// WriteFile places a file in the working directory.
	WriteFile(ctx context.Context, name string, data []byte) error

	// ReadFile returns a file from the working directory, or
	// ErrFileNotFound.
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// ListFiles returns the names of all files in the working
	// directory.
	ListFiles(ctx context.Context) ([]string, error)

	// Run executes Python code in the working directory. An error
	// means the run could not be carried out; code that raises inside
	// the sandbox still returns a RunResult.
	Run(ctx context.Context, code string, opts RunOptions) (*RunResult, error)

	// Close discards the sandbox. The remote platform owns the
	// ephemeral lifecycle, so Close failures are not fatal.
	Close(ctx context.Context) error
}

// Backend creates sandboxes. Each Create call yields a fresh
// environment exclusively owned by the caller until Close.
type Backend interface {
	Create(ctx context.Context) (Sandbox, error)
}

// Acquirer abstracts how a sandbox server is located. Implementations
// exist for static URL mode (returns a fixed URL) and SandboxClaim
// mode (creates CRDs, see the kubernetes subpackage).
type Acquirer interface {
	// Acquire returns a sandbox server base URL. The release function
	// must be called after use to clean up.
	Acquire(ctx context.Context) (sandboxURL string, release func(), err error)
}

// StaticAcquirer returns a fixed sandbox server URL (development mode).
type StaticAcquirer struct {
	URL string
}

var _ Acquirer = (*StaticAcquirer)(nil)

func (a *StaticAcquirer) Acquire(_ context.Context) (string, func(), error) {
	return a.URL, func() {}, nil
}
