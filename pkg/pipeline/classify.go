package pipeline

import (
	"strings"

	"github.com/datakiln/datakiln/pkg/api"
)

// defaultErrorMarkers are the substrings that mark captured output as
// containing a Python failure.
var defaultErrorMarkers = []string{"Traceback", "Error", "Exception"}

// classify maps one completed execution onto the four-way outcome.
// Transport failures never reach this function; they are ClassFailed
// at the call site.
//
//   - The primary artifact exists: success, whatever the output says.
//     Generated code routinely logs warnings that look alarming.
//   - Artifact absent with a recognized error marker in the output:
//     failed_with_errors.
//   - Artifact absent, output clean: partial_success. The code ran to
//     completion but never produced its result.
func classify(artifactExists bool, output string, markers []string) api.Classification {
	if artifactExists {
		return api.ClassSuccess
	}
	for _, marker := range markers {
		if strings.Contains(output, marker) {
			return api.ClassFailedWithErrors
		}
	}
	return api.ClassPartialSuccess
}
