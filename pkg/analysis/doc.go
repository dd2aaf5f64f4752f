// Package analysis parses uploaded CSV datasets and profiles them for
// the code-generation prompts: per-column statistics, missing-data
// patterns, quality issues, target-variable characteristics, and
// preprocessing recommendations.
package analysis
