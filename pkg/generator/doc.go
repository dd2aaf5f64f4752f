// Package generator talks to an OpenAI-compatible Chat Completions
// backend to produce Python code from analysis prompts, and cleans and
// inspects what comes back: fence stripping, model and metric name
// extraction, and execution time estimates.
package generator
