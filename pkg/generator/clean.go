package generator

import (
	"regexp"
	"strings"
)

var (
	fenceOpenPattern = regexp.MustCompile("```python\n?")
	fencePattern     = regexp.MustCompile("```\n?")
	blankRunsPattern = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// Clean normalizes raw model output into plain Python source: markdown
// fences removed, surrounding whitespace trimmed, and runs of blank
// lines collapsed. Output without fences passes through unchanged apart
// from trimming.
func Clean(raw string) string {
	cleaned := fenceOpenPattern.ReplaceAllString(raw, "")
	cleaned = fencePattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	for {
		collapsed := blankRunsPattern.ReplaceAllString(cleaned, "\n\n")
		if collapsed == cleaned {
			return cleaned
		}
		cleaned = collapsed
	}
}
