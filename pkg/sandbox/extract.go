package sandbox

import (
	"encoding/json"
	"strings"
	"time"
)

// decodeRunResult reduces a sandbox server response body into a
// RunResult. The response shape has varied across server versions, so
// decoding walks a descending list of known shapes and falls back to
// stringifying the whole body rather than failing.
func decodeRunResult(raw []byte) *RunResult {
	result := &RunResult{Raw: json.RawMessage(raw)}

	if extractFlat(raw, result) {
		return result
	}
	if extractNestedLogs(raw, result) {
		return result
	}
	if extractPlainOutput(raw, result) {
		return result
	}

	// Unknown shape: keep everything as stdout so nothing is lost.
	result.Stdout = strings.TrimSpace(string(raw))
	return result
}

// extractFlat handles the current server shape: top-level stdout and
// stderr strings with exit_code and execution_time_ms.
func extractFlat(raw []byte, result *RunResult) bool {
	var flat struct {
		Stdout          *string `json:"stdout"`
		Stderr          *string `json:"stderr"`
		ExitCode        int     `json:"exit_code"`
		ExecutionTimeMs int64   `json:"execution_time_ms"`
	}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return false
	}
	if flat.Stdout == nil && flat.Stderr == nil {
		return false
	}
	if flat.Stdout != nil {
		result.Stdout = *flat.Stdout
	}
	if flat.Stderr != nil {
		result.Stderr = *flat.Stderr
	}
	result.ExitCode = flat.ExitCode
	result.Duration = time.Duration(flat.ExecutionTimeMs) * time.Millisecond
	return true
}

// extractNestedLogs handles servers that report line-array logs:
// {"logs": {"stdout": [...], "stderr": [...]}}.
func extractNestedLogs(raw []byte, result *RunResult) bool {
	var nested struct {
		Logs *struct {
			Stdout []string `json:"stdout"`
			Stderr []string `json:"stderr"`
		} `json:"logs"`
		ExitCode int `json:"exit_code"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil || nested.Logs == nil {
		return false
	}
	result.Stdout = strings.Join(nested.Logs.Stdout, "\n")
	result.Stderr = strings.Join(nested.Logs.Stderr, "\n")
	result.ExitCode = nested.ExitCode
	return true
}

// extractPlainOutput handles minimal shapes that report a single
// combined output or text field.
func extractPlainOutput(raw []byte, result *RunResult) bool {
	var plain struct {
		Output *string `json:"output"`
		Text   *string `json:"text"`
		Error  string  `json:"error"`
	}
	if err := json.Unmarshal(raw, &plain); err != nil {
		return false
	}
	switch {
	case plain.Output != nil:
		result.Stdout = *plain.Output
	case plain.Text != nil:
		result.Stdout = *plain.Text
	case plain.Error != "":
		result.Stderr = plain.Error
		result.ExitCode = 1
	default:
		return false
	}
	return true
}
