package api

import "fmt"

// Kind identifies a pipeline stage. Each stage generates and executes a
// different flavor of Python code against the experiment's dataset.
type Kind string

const (
	KindPreprocess Kind = "preprocess"
	KindTrain      Kind = "train"
	KindTune       Kind = "tune"
)

// ParseKind converts a string into a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPreprocess, KindTrain, KindTune:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown pipeline kind %q", s)
	}
}

// Valid reports whether k is one of the defined pipeline kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPreprocess, KindTrain, KindTune:
		return true
	}
	return false
}

// InputFilename returns the fixed name under which the stage's input
// dataset is placed inside the sandbox. Training and tuning consume the
// cleaned dataset produced by preprocessing.
func (k Kind) InputFilename() string {
	if k == KindPreprocess {
		return "uploaded_data.csv"
	}
	return "cleaned_data.csv"
}

// OutputFilename returns the fixed name of the primary artifact the
// stage's generated code must save inside the sandbox.
func (k Kind) OutputFilename() string {
	switch k {
	case KindPreprocess:
		return "cleaned_data.csv"
	case KindTrain:
		return "model_results.json"
	case KindTune:
		return "tuning_results.json"
	}
	return ""
}

// ResultVariable returns the name of the Python variable the generated
// code must leave behind for the harness to persist.
func (k Kind) ResultVariable() string {
	switch k {
	case KindPreprocess:
		return "cleaned_data"
	case KindTrain:
		return "model_results"
	case KindTune:
		return "tuning_results"
	}
	return ""
}

// Classification is the four-way outcome of a sandbox execution. The
// first axis is whether the orchestration itself completed; the second
// is whether the generated code produced its primary artifact.
type Classification string

const (
	// ClassSuccess: execution completed and the primary artifact exists.
	ClassSuccess Classification = "success"
	// ClassPartialSuccess: execution completed but the generated code did
	// not produce its primary artifact, with no recognizable errors in
	// the captured output.
	ClassPartialSuccess Classification = "partial_success"
	// ClassFailedWithErrors: execution completed, the primary artifact is
	// absent, and the captured output contains error markers.
	ClassFailedWithErrors Classification = "failed_with_errors"
	// ClassFailed: the orchestration itself failed before or during
	// execution (sandbox unreachable, upload failed, timeout).
	ClassFailed Classification = "failed"
)

// Completed reports whether the classification describes an execution
// that ran to completion, regardless of the generated code's outcome.
func (c Classification) Completed() bool {
	return c == ClassSuccess || c == ClassPartialSuccess || c == ClassFailedWithErrors
}
