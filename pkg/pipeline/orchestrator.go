package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/datakiln/datakiln/pkg/analysis"
	"github.com/datakiln/datakiln/pkg/api"
	"github.com/datakiln/datakiln/pkg/generator"
	"github.com/datakiln/datakiln/pkg/prompt"
	"github.com/datakiln/datakiln/pkg/sandbox"
	"github.com/datakiln/datakiln/pkg/storage"
	"github.com/datakiln/datakiln/pkg/validator"
)

// Generator produces code from a task prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Executor runs one artifact's code in an ephemeral sandbox.
type Executor interface {
	Execute(ctx context.Context, kind api.Kind, code string, input []byte) (*sandbox.Outcome, error)
}

// Config holds orchestrator settings.
type Config struct {
	// ErrorMarkers are substrings that mark captured output as a
	// Python failure during classification.
	ErrorMarkers []string `yaml:"error_markers"`

	// TuningTopModels is how many of the best baseline models the
	// tuning prompt targets.
	TuningTopModels int `yaml:"tuning_top_models"`
}

func (c Config) defaults() Config {
	if c.ErrorMarkers == nil {
		c.ErrorMarkers = defaultErrorMarkers
	}
	if c.TuningTopModels <= 0 {
		c.TuningTopModels = 2
	}
	return c
}

// Orchestrator sequences the three workflows against one experiment:
// generate code, execute it, classify, persist. Invocations are
// independent; each gets its own sandbox and its own storage keys, so
// concurrent calls need no coordination.
type Orchestrator struct {
	blobs       storage.BlobStore
	experiments storage.ExperimentStore
	gen         Generator
	exec        Executor
	cfg         Config

	now func() time.Time
}

// New creates an orchestrator over the given collaborators.
func New(blobs storage.BlobStore, experiments storage.ExperimentStore, gen Generator, exec Executor, cfg Config) *Orchestrator {
	return &Orchestrator{
		blobs:       blobs,
		experiments: experiments,
		gen:         gen,
		exec:        exec,
		cfg:         cfg.defaults(),
		now:         time.Now,
	}
}

// UploadResult reports a stored dataset, its basic shape and a short
// preview of the leading rows.
type UploadResult struct {
	Key         string     `json:"key"`
	Filename    string     `json:"filename"`
	Rows        int        `json:"rows"`
	Columns     int        `json:"columns"`
	ColumnNames []string   `json:"column_names"`
	Preview     [][]string `json:"preview,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
}

const previewRows = 5

func datasetPreview(ds *analysis.Dataset) (names []string, rows [][]string) {
	names = make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		names[i] = col.Name
	}
	n := min(ds.Rows, previewRows)
	rows = make([][]string, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(ds.Columns))
		for c, col := range ds.Columns {
			row[c] = col.Values[r]
		}
		rows[r] = row
	}
	return names, rows
}

// Upload validates and stores an uploaded CSV dataset.
func (o *Orchestrator) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, api.NewInvalidRequestError("file", "uploaded file is empty")
	}

	ds, err := analysis.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, api.NewInvalidRequestError("file", fmt.Sprintf("parsing CSV: %v", err))
	}
	warnings, err := analysis.ValidateDataset(ds)
	if err != nil {
		return nil, api.NewInvalidRequestError("file", err.Error())
	}

	key := storage.NewKey(storage.PrefixUploads, filename, o.now())
	if err := o.blobs.Put(ctx, key, data); err != nil {
		return nil, api.NewStorageError(fmt.Sprintf("storing dataset: %v", err))
	}

	names, preview := datasetPreview(ds)
	slog.Info("dataset uploaded", "key", key, "rows", ds.Rows, "columns", len(ds.Columns))
	return &UploadResult{
		Key:         key,
		Filename:    storage.SanitizeFilename(filename),
		Rows:        ds.Rows,
		Columns:     len(ds.Columns),
		ColumnNames: names,
		Preview:     preview,
		Warnings:    warnings,
	}, nil
}

// Analyze profiles a stored dataset against a target column and
// creates the experiment record every later stage references.
func (o *Orchestrator) Analyze(ctx context.Context, datasetKey, targetColumn string) (*api.Experiment, error) {
	if targetColumn == "" {
		return nil, api.NewInvalidRequestError("target_column", "target column is required")
	}

	data, err := o.getBlob(ctx, datasetKey, "dataset")
	if err != nil {
		return nil, err
	}

	ds, err := analysis.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, api.NewInvalidRequestError("dataset_key", fmt.Sprintf("parsing CSV: %v", err))
	}
	if _, err := analysis.ValidateDataset(ds); err != nil {
		return nil, api.NewInvalidRequestError("dataset_key", err.Error())
	}
	taskType, err := analysis.ValidateTarget(ds, targetColumn)
	if err != nil {
		return nil, api.NewInvalidRequestError("target_column", err.Error())
	}

	profile, err := analysis.Analyze(ds, targetColumn)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("profiling dataset: %v", err))
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("encoding profile: %v", err))
	}

	now := o.now().UTC()
	exp := &api.Experiment{
		ID:           api.NewExperimentID(now),
		Filename:     filenameFromKey(datasetKey),
		DatasetKey:   datasetKey,
		TargetColumn: targetColumn,
		TaskType:     taskType,
		Rows:         ds.Rows,
		Columns:      len(ds.Columns),
		CreatedAt:    now,
		UpdatedAt:    now,
		Analysis:     profileJSON,
	}
	if err := o.experiments.SaveExperiment(ctx, exp); err != nil {
		return nil, api.NewStorageError(fmt.Sprintf("saving experiment: %v", err))
	}

	slog.Info("experiment created", "id", exp.ID, "task_type", taskType, "rows", exp.Rows)
	return exp, nil
}

// Generate produces, validates, and persists one stage's code for an
// experiment. The code blob is written at generation time so a later
// failed execution remains inspectable and re-runnable.
func (o *Orchestrator) Generate(ctx context.Context, experimentID string, kind api.Kind) (*api.GeneratedArtifact, error) {
	if !kind.Valid() {
		return nil, api.NewInvalidRequestError("kind", fmt.Sprintf("unknown pipeline kind %q", kind))
	}

	exp, err := o.getExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	taskPrompt, baseline, err := o.buildPrompt(ctx, exp, kind)
	if err != nil {
		return nil, err
	}

	raw, err := o.gen.Generate(ctx, taskPrompt)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, api.NewGenerationError(err.Error())
	}

	cleaned := generator.Clean(raw)
	res := validator.ValidateAndFix(cleaned, kind)

	artifact := &api.GeneratedArtifact{
		Kind:         kind,
		RawCode:      raw,
		Code:         res.Code,
		Model:        o.gen.Model(),
		PromptName:   promptName(kind),
		SyntaxValid:  res.SyntaxValid,
		Issues:       res.Issues,
		FixesApplied: res.FixesApplied,
	}
	o.attachMetadata(artifact, exp, baseline)

	key := storage.NewKey(codePrefix(kind), codeFilename(kind), o.now())
	if err := o.blobs.Put(ctx, key, []byte(codeHeader(exp, o.now())+res.Code)); err != nil {
		return nil, api.NewStorageError(fmt.Sprintf("storing generated code: %v", err))
	}
	artifact.CodeKey = key

	setCodeKey(exp, kind, key)
	exp.UpdatedAt = o.now().UTC()
	if err := o.experiments.UpdateExperiment(ctx, exp); err != nil {
		return nil, api.NewStorageError(fmt.Sprintf("updating experiment: %v", err))
	}

	slog.Info("code generated", "experiment", exp.ID, "kind", kind, "key", key,
		"syntax_valid", res.SyntaxValid, "fixes", len(res.FixesApplied))
	return artifact, nil
}

// Execute runs an experiment's previously generated code for one stage
// and classifies the outcome. Transport failures yield a result with
// Classification failed and nothing persisted; in-sandbox failures
// yield a completed result carrying whatever the run produced.
func (o *Orchestrator) Execute(ctx context.Context, experimentID string, kind api.Kind) (*api.ExecutionResult, error) {
	if !kind.Valid() {
		return nil, api.NewInvalidRequestError("kind", fmt.Sprintf("unknown pipeline kind %q", kind))
	}

	exp, err := o.getExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	codeKey := codeKeyFor(exp, kind)
	if codeKey == "" {
		return nil, api.NewInvalidRequestError("kind", fmt.Sprintf("no %s code generated for experiment %s", kind, exp.ID))
	}
	code, err := o.getBlob(ctx, codeKey, "generated code")
	if err != nil {
		return nil, err
	}

	inputKey := exp.DatasetKey
	if kind != api.KindPreprocess {
		inputKey = exp.CleanedDataKey
		if inputKey == "" {
			return nil, api.NewInvalidRequestError("kind", "no cleaned dataset available, run preprocessing first")
		}
	}
	input, err := o.getBlob(ctx, inputKey, "input dataset")
	if err != nil {
		return nil, err
	}

	result := &api.ExecutionResult{
		ID:           api.NewExecutionID(),
		ExperimentID: exp.ID,
		Kind:         kind,
	}

	outcome, err := o.exec.Execute(ctx, kind, string(code), input)
	if err != nil {
		slog.Warn("execution transport failure", "experiment", exp.ID, "kind", kind, "error", err.Error())
		result.Classification = api.ClassFailed
		result.Error = err.Error()
		return result, nil
	}

	result.Success = true
	result.Output = outcome.Stdout
	result.Error = outcome.Stderr
	result.Duration = outcome.Duration.Milliseconds()
	result.Classification = classify(outcome.ArtifactExists, outcome.Stdout+"\n"+outcome.Stderr, o.cfg.ErrorMarkers)

	if err := o.persistOutcome(ctx, exp, kind, outcome, result); err != nil {
		return nil, err
	}

	slog.Info("execution classified", "experiment", exp.ID, "kind", kind,
		"classification", result.Classification, "duration_ms", result.Duration)
	return result, nil
}

// persistOutcome writes a completed execution's artifacts and updates
// the experiment record. The primary artifact is persisted whenever it
// exists; model blobs are best-effort.
func (o *Orchestrator) persistOutcome(ctx context.Context, exp *api.Experiment, kind api.Kind, outcome *sandbox.Outcome, result *api.ExecutionResult) error {
	now := o.now()

	if outcome.ArtifactExists {
		if kind == api.KindPreprocess {
			key := storage.NewKey(storage.PrefixProcessed, kind.OutputFilename(), now)
			if err := o.blobs.Put(ctx, key, outcome.Artifact); err != nil {
				return api.NewStorageError(fmt.Sprintf("storing cleaned dataset: %v", err))
			}
			result.CleanedDataExists = true
			result.CleanedDataKey = key
			exp.CleanedDataKey = key
		} else {
			key := storage.NewKey(storage.PrefixModels, kind.OutputFilename(), now)
			if err := o.blobs.Put(ctx, key, outcome.Artifact); err != nil {
				return api.NewStorageError(fmt.Sprintf("storing results document: %v", err))
			}
			result.ResultsExists = true
			result.ResultsKey = key
			result.ModelScores = outcome.ModelScores
			if kind == api.KindTrain {
				exp.ModelResultsKey = key
			} else {
				exp.TuningResultsKey = key
			}
		}
	}

	for name, blob := range outcome.ModelFiles {
		key := storage.NewKey(storage.PrefixModels, name, now)
		if err := o.blobs.Put(ctx, key, blob); err != nil {
			slog.Warn("storing model file failed", "file", name, "error", err.Error())
			continue
		}
		result.ModelFiles = append(result.ModelFiles, key)
	}
	sort.Strings(result.ModelFiles)

	exp.UpdatedAt = now.UTC()
	if err := o.experiments.UpdateExperiment(ctx, exp); err != nil {
		return api.NewStorageError(fmt.Sprintf("updating experiment: %v", err))
	}
	return nil
}

// GetExperiment returns one experiment record.
func (o *Orchestrator) GetExperiment(ctx context.Context, id string) (*api.Experiment, error) {
	return o.getExperiment(ctx, id)
}

// ListExperiments returns experiment records, newest first.
func (o *Orchestrator) ListExperiments(ctx context.Context, limit int) ([]*api.Experiment, error) {
	exps, err := o.experiments.ListExperiments(ctx, limit)
	if err != nil {
		return nil, api.NewStorageError(fmt.Sprintf("listing experiments: %v", err))
	}
	return exps, nil
}

// Download returns a stored artifact by key.
func (o *Orchestrator) Download(ctx context.Context, key string) ([]byte, error) {
	return o.getBlob(ctx, key, "artifact")
}

// ArtifactListing is the files endpoint payload: the blobs under a
// prefix plus aggregate usage.
type ArtifactListing struct {
	Files      []storage.BlobInfo `json:"files"`
	Count      int                `json:"count"`
	TotalBytes int64              `json:"total_bytes"`
}

// DeleteArtifact removes a stored blob by key.
func (o *Orchestrator) DeleteArtifact(ctx context.Context, key string) error {
	err := o.blobs.Delete(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return api.NewNotFoundError(fmt.Sprintf("artifact %q not found", key))
	case errors.Is(err, storage.ErrInvalidKey):
		return api.NewInvalidRequestError("key", err.Error())
	case err != nil:
		return api.NewStorageError(fmt.Sprintf("deleting artifact: %v", err))
	}
	slog.Info("artifact deleted", "key", key)
	return nil
}

// ListArtifacts returns stored blobs under a prefix, all of them when
// the prefix is empty.
func (o *Orchestrator) ListArtifacts(ctx context.Context, prefix string) (*ArtifactListing, error) {
	infos, err := o.blobs.List(ctx, prefix)
	if err != nil {
		return nil, api.NewStorageError(fmt.Sprintf("listing artifacts: %v", err))
	}
	listing := &ArtifactListing{Files: infos, Count: len(infos)}
	for _, info := range infos {
		listing.TotalBytes += info.Size
	}
	return listing, nil
}

// buildPrompt renders the stage's task prompt. Tuning additionally
// returns the baseline scores so metadata can size its estimate.
func (o *Orchestrator) buildPrompt(ctx context.Context, exp *api.Experiment, kind api.Kind) (string, []api.ModelScore, error) {
	ds := prompt.Dataset{
		Filename:     exp.Filename,
		TargetColumn: exp.TargetColumn,
		TaskType:     exp.TaskType,
		Rows:         exp.Rows,
		Columns:      exp.Columns,
	}

	switch kind {
	case api.KindPreprocess:
		var profile analysis.Profile
		if err := json.Unmarshal(exp.Analysis, &profile); err != nil {
			return "", nil, api.NewServerError(fmt.Sprintf("decoding stored analysis: %v", err))
		}
		return prompt.Preprocessing(&profile, ds), nil, nil

	case api.KindTrain:
		return prompt.Training(ds), nil, nil

	default: // api.KindTune
		if exp.ModelResultsKey == "" {
			return "", nil, api.NewInvalidRequestError("kind", "no training results available, run training first")
		}
		data, err := o.getBlob(ctx, exp.ModelResultsKey, "training results")
		if err != nil {
			return "", nil, err
		}
		baseline := sandbox.ParseModelScores(data)
		if len(baseline) == 0 {
			return "", nil, api.NewInvalidRequestError("kind", "stored training results are unreadable")
		}
		top := baseline
		if len(top) > o.cfg.TuningTopModels {
			top = top[:o.cfg.TuningTopModels]
		}
		names := make([]string, len(top))
		for i, score := range top {
			names[i] = score.Name
		}
		return prompt.Tuning(baseline, names), baseline, nil
	}
}

// attachMetadata fills the artifact's heuristic metadata. Heuristics
// only: the code is scanned, never re-generated.
func (o *Orchestrator) attachMetadata(artifact *api.GeneratedArtifact, exp *api.Experiment, baseline []api.ModelScore) {
	switch artifact.Kind {
	case api.KindPreprocess:
		artifact.EstimatedSeconds = generator.EstimatePreprocessSeconds(artifact.Code)
	case api.KindTrain:
		artifact.ModelsIncluded = generator.ExtractModels(artifact.Code)
		artifact.MetricsIncluded = generator.ExtractMetrics(artifact.Code)
		artifact.EstimatedSeconds = generator.EstimateTrainingSeconds(exp.Rows, exp.Columns)
	case api.KindTune:
		artifact.ModelsIncluded = generator.ExtractModels(artifact.Code)
		count := len(artifact.ModelsIncluded)
		if count == 0 {
			count = len(baseline)
		}
		artifact.EstimatedSeconds = generator.EstimateTuningSeconds(count)
	}
}

func (o *Orchestrator) getExperiment(ctx context.Context, id string) (*api.Experiment, error) {
	exp, err := o.experiments.GetExperiment(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, api.NewNotFoundError(fmt.Sprintf("experiment %s not found", id))
	}
	if err != nil {
		return nil, api.NewStorageError(fmt.Sprintf("loading experiment: %v", err))
	}
	return exp, nil
}

func (o *Orchestrator) getBlob(ctx context.Context, key, what string) ([]byte, error) {
	data, err := o.blobs.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, api.NewNotFoundError(fmt.Sprintf("%s %q not found", what, key))
	case errors.Is(err, storage.ErrInvalidKey):
		return nil, api.NewInvalidRequestError("key", err.Error())
	case err != nil:
		return nil, api.NewStorageError(fmt.Sprintf("reading %s: %v", what, err))
	}
	return data, nil
}

// codeHeader labels a persisted script with the experiment it belongs
// to, so a downloaded file is traceable on its own.
func codeHeader(exp *api.Experiment, now time.Time) string {
	return fmt.Sprintf("# Experiment: %s\n# Dataset: %s\n# Generated: %s\n\n",
		exp.ID, exp.DatasetKey, now.UTC().Format(time.RFC3339))
}

func codePrefix(kind api.Kind) string {
	if kind == api.KindPreprocess {
		return storage.PrefixProcessed
	}
	return storage.PrefixModels
}

func codeFilename(kind api.Kind) string {
	switch kind {
	case api.KindPreprocess:
		return "preprocessing.py"
	case api.KindTrain:
		return "training.py"
	default:
		return "tuning.py"
	}
}

func promptName(kind api.Kind) string {
	switch kind {
	case api.KindPreprocess:
		return "preprocessing"
	case api.KindTrain:
		return "training"
	default:
		return "tuning"
	}
}

func codeKeyFor(exp *api.Experiment, kind api.Kind) string {
	switch kind {
	case api.KindPreprocess:
		return exp.PreprocessCodeKey
	case api.KindTrain:
		return exp.TrainingCodeKey
	default:
		return exp.TuningCodeKey
	}
}

func setCodeKey(exp *api.Experiment, kind api.Kind, key string) {
	switch kind {
	case api.KindPreprocess:
		exp.PreprocessCodeKey = key
	case api.KindTrain:
		exp.TrainingCodeKey = key
	default:
		exp.TuningCodeKey = key
	}
}

// filenameFromKey recovers the original filename from a storage key of
// the form <prefix><date>_<time>_<shortid>_<name>.
func filenameFromKey(key string) string {
	base := key
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	parts := strings.SplitN(base, "_", 4)
	if len(parts) == 4 {
		return parts[3]
	}
	return base
}
