package api

import (
	"encoding/json"
	"time"
)

// GeneratedArtifact is the outcome of one code-generation request:
// the raw model output, the validated (and possibly repaired) code,
// and the metadata heuristically extracted from it.
type GeneratedArtifact struct {
	Kind       Kind   `json:"kind"`
	RawCode    string `json:"raw_code,omitempty"`
	Code       string `json:"code"`
	CodeKey    string `json:"code_key,omitempty"`
	Model      string `json:"model,omitempty"`
	PromptName string `json:"prompt_name,omitempty"`

	SyntaxValid  bool     `json:"syntax_valid"`
	Issues       []string `json:"issues,omitempty"`
	FixesApplied []string `json:"fixes_applied,omitempty"`

	ModelsIncluded   []string `json:"models_included,omitempty"`
	MetricsIncluded  []string `json:"metrics_included,omitempty"`
	EstimatedSeconds int      `json:"estimated_seconds,omitempty"`
}

// ModelScore is one model's evaluation metrics as reported by the
// generated training or tuning code.
type ModelScore struct {
	Name     string             `json:"name"`
	Accuracy float64            `json:"accuracy,omitempty"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
	Params   map[string]any     `json:"params,omitempty"`
	File     string             `json:"file,omitempty"`
}

// ExecutionResult is the outcome of one sandbox execution. Success
// means the orchestration completed: the sandbox was reached, the code
// ran, and output was captured. Whether the generated code achieved its
// goal is a separate question answered by the artifact fields and the
// Classification.
type ExecutionResult struct {
	ID             string         `json:"id"`
	ExperimentID   string         `json:"experiment_id,omitempty"`
	Kind           Kind           `json:"kind"`
	Success        bool           `json:"success"`
	Classification Classification `json:"classification"`

	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration int64  `json:"duration_ms,omitempty"`

	// Preprocess artifacts.
	CleanedDataExists bool   `json:"cleaned_data_exists,omitempty"`
	CleanedDataKey    string `json:"cleaned_data_key,omitempty"`

	// Train and tune artifacts.
	ResultsExists bool         `json:"results_exists,omitempty"`
	ResultsKey    string       `json:"results_key,omitempty"`
	ModelScores   []ModelScore `json:"model_scores,omitempty"`
	ModelFiles    []string     `json:"model_files,omitempty"`
}

// PrimaryArtifactPresent reports whether the stage's primary artifact
// was produced: the cleaned dataset for preprocessing, the results
// document for training and tuning.
func (r *ExecutionResult) PrimaryArtifactPresent() bool {
	if r.Kind == KindPreprocess {
		return r.CleanedDataExists
	}
	return r.ResultsExists
}

// Experiment is the persistent record for one uploaded dataset and the
// artifacts the pipeline derives from it. Analysis holds the dataset
// profile as produced by the analysis package; it is stored opaquely so
// the record survives profile schema evolution.
type Experiment struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	DatasetKey   string    `json:"dataset_key"`
	TargetColumn string    `json:"target_column,omitempty"`
	TaskType     string    `json:"task_type,omitempty"`
	Rows         int       `json:"rows"`
	Columns      int       `json:"columns"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Analysis json.RawMessage `json:"analysis,omitempty"`

	PreprocessCodeKey string `json:"preprocess_code_key,omitempty"`
	CleanedDataKey    string `json:"cleaned_data_key,omitempty"`
	TrainingCodeKey   string `json:"training_code_key,omitempty"`
	ModelResultsKey   string `json:"model_results_key,omitempty"`
	TuningCodeKey     string `json:"tuning_code_key,omitempty"`
	TuningResultsKey  string `json:"tuning_results_key,omitempty"`
}

// Clone returns a deep copy of the experiment.
func (e *Experiment) Clone() *Experiment {
	clone := *e
	if e.Analysis != nil {
		clone.Analysis = make(json.RawMessage, len(e.Analysis))
		copy(clone.Analysis, e.Analysis)
	}
	return &clone
}
