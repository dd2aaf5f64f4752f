package sandbox

import (
	"testing"
	"time"
)

func TestDecodeRunResultFlat(t *testing.T) {
	raw := []byte(`{"status":"success","stdout":"hello\n","stderr":"","exit_code":0,"execution_time_ms":1500}`)
	result := decodeRunResult(raw)

	if result.Stdout != "hello\n" {
		t.Errorf("stdout = %q, want %q", result.Stdout, "hello\n")
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if result.Duration != 1500*time.Millisecond {
		t.Errorf("duration = %s, want 1.5s", result.Duration)
	}
}

func TestDecodeRunResultFlatError(t *testing.T) {
	raw := []byte(`{"stdout":"","stderr":"Traceback (most recent call last):\n  KeyError: 'age'","exit_code":1}`)
	result := decodeRunResult(raw)

	if result.Stderr == "" {
		t.Error("stderr lost")
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", result.ExitCode)
	}
}

func TestDecodeRunResultNestedLogs(t *testing.T) {
	raw := []byte(`{"logs":{"stdout":["line one","line two"],"stderr":["warn"]},"exit_code":0}`)
	result := decodeRunResult(raw)

	if result.Stdout != "line one\nline two" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if result.Stderr != "warn" {
		t.Errorf("stderr = %q", result.Stderr)
	}
}

func TestDecodeRunResultPlainOutput(t *testing.T) {
	raw := []byte(`{"output":"combined output"}`)
	result := decodeRunResult(raw)

	if result.Stdout != "combined output" {
		t.Errorf("stdout = %q", result.Stdout)
	}
}

func TestDecodeRunResultErrorOnly(t *testing.T) {
	raw := []byte(`{"error":"worker crashed"}`)
	result := decodeRunResult(raw)

	if result.Stderr != "worker crashed" {
		t.Errorf("stderr = %q, want worker crashed", result.Stderr)
	}
	if result.ExitCode == 0 {
		t.Error("error-only response should not report exit code 0")
	}
}

func TestDecodeRunResultUnknownShape(t *testing.T) {
	for _, raw := range []string{
		`"just a string"`,
		`[1,2,3]`,
		`not json at all`,
		`{"something":{"else":true}}`,
	} {
		result := decodeRunResult([]byte(raw))
		if result.Stdout == "" {
			t.Errorf("decodeRunResult(%q) lost the response entirely", raw)
		}
		if string(result.Raw) != raw {
			t.Errorf("raw body not preserved for %q", raw)
		}
	}
}
