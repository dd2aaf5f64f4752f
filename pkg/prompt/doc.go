// Package prompt renders the code-generation prompts sent to the
// model: preprocessing prompts built from the dataset profile, training
// prompts parameterized by task type, and tuning prompts built from
// baseline model results.
package prompt
