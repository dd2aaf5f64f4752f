package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/datakiln/datakiln/pkg/api"
)

// Default per-kind run timeouts. Tuning performs cross-validated grid
// search and is expected to run for minutes, not seconds.
const (
	DefaultPreprocessTimeout = 60 * time.Second
	DefaultTrainTimeout      = 120 * time.Second
	DefaultTuneTimeout       = 600 * time.Second
)

// defaultRequirements are installed before training and tuning runs.
// Preprocessing gets by on the sandbox image's preinstalled pandas.
var defaultRequirements = []string{"pandas", "numpy", "scikit-learn", "xgboost", "joblib"}

// Config holds executor settings.
type Config struct {
	PreprocessTimeout time.Duration `yaml:"preprocess_timeout"`
	TrainTimeout      time.Duration `yaml:"train_timeout"`
	TuneTimeout       time.Duration `yaml:"tune_timeout"`

	// Requirements overrides the package list installed for training
	// and tuning runs.
	Requirements []string `yaml:"requirements"`
}

func (c Config) defaults() Config {
	if c.PreprocessTimeout <= 0 {
		c.PreprocessTimeout = DefaultPreprocessTimeout
	}
	if c.TrainTimeout <= 0 {
		c.TrainTimeout = DefaultTrainTimeout
	}
	if c.TuneTimeout <= 0 {
		c.TuneTimeout = DefaultTuneTimeout
	}
	if c.Requirements == nil {
		c.Requirements = defaultRequirements
	}
	return c
}

func (c Config) timeout(kind api.Kind) time.Duration {
	switch kind {
	case api.KindTrain:
		return c.TrainTimeout
	case api.KindTune:
		return c.TuneTimeout
	default:
		return c.PreprocessTimeout
	}
}

// Outcome is what one completed execution observed. It exists only
// when the orchestration itself succeeded; whether the generated code
// achieved its goal is answered by ArtifactExists and the captured
// output, never by an error.
type Outcome struct {
	Stdout   string
	Stderr   string
	Duration time.Duration

	// Files are the names observed in the sandbox working directory
	// after the run.
	Files []string

	// ArtifactExists reports whether the stage's primary artifact was
	// present; Artifact holds its bytes when it was.
	ArtifactExists bool
	Artifact       []byte

	// ModelScores are parsed from the results document for train and
	// tune runs. Empty when parsing fails; the raw Artifact is still
	// kept.
	ModelScores []api.ModelScore

	// ModelFiles holds serialized model blobs read back from the
	// sandbox, keyed by file name.
	ModelFiles map[string][]byte
}

// Executor runs one artifact's code in a fresh sandbox per call.
type Executor struct {
	backend Backend
	cfg     Config
}

// NewExecutor creates an executor over the given backend.
func NewExecutor(backend Backend, cfg Config) *Executor {
	return &Executor{backend: backend, cfg: cfg.defaults()}
}

// Execute uploads the input dataset, runs the harnessed code, and
// reads back the stage's artifacts. A returned error means the
// orchestration failed (sandbox unreachable, upload failed); code
// that raises inside the sandbox still yields an Outcome.
func (e *Executor) Execute(ctx context.Context, kind api.Kind, code string, input []byte) (*Outcome, error) {
	sb, err := e.backend.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating sandbox: %w", err)
	}
	defer func() {
		if err := sb.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("sandbox close failed", "kind", kind, "error", err.Error())
		}
	}()

	if err := sb.WriteFile(ctx, kind.InputFilename(), input); err != nil {
		return nil, fmt.Errorf("uploading input dataset: %w", err)
	}

	timeout := e.cfg.timeout(kind)

	// Install phase for training and tuning. Best-effort: a failed
	// install is logged and the run phase proceeds, letting the code's
	// own import errors surface in stderr.
	if kind == api.KindTrain || kind == api.KindTune {
		installed, err := sb.Run(ctx, "print('dependencies ready')", RunOptions{
			Timeout:      timeout,
			Requirements: e.cfg.Requirements,
		})
		if err != nil {
			slog.Warn("dependency install failed", "kind", kind, "error", err.Error())
		} else if installed.ExitCode != 0 {
			slog.Warn("dependency install reported errors", "kind", kind, "stderr", truncate(installed.Stderr, 200))
		}
	}

	run, err := sb.Run(ctx, BuildHarness(kind, code), RunOptions{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("running code: %w", err)
	}

	outcome := &Outcome{
		Stdout:   run.Stdout,
		Stderr:   run.Stderr,
		Duration: run.Duration,
	}

	// Everything past this point is best-effort observation. A missing
	// file is absence of evidence, not an error.
	if files, err := sb.ListFiles(ctx); err != nil {
		slog.Warn("listing sandbox files failed", "kind", kind, "error", err.Error())
	} else {
		outcome.Files = files
	}

	if artifact, err := sb.ReadFile(ctx, kind.OutputFilename()); err == nil {
		outcome.ArtifactExists = true
		outcome.Artifact = artifact
		if kind != api.KindPreprocess {
			outcome.ModelScores = ParseModelScores(artifact)
		}
	} else if !errors.Is(err, ErrFileNotFound) {
		slog.Warn("artifact readback failed", "kind", kind, "file", kind.OutputFilename(), "error", err.Error())
	}

	if kind != api.KindPreprocess {
		e.readModelFiles(ctx, sb, outcome)
	}

	slog.Info("sandbox execution complete",
		"kind", kind,
		"duration_ms", outcome.Duration.Milliseconds(),
		"artifact_exists", outcome.ArtifactExists,
		"files", len(outcome.Files),
	)
	return outcome, nil
}

// readModelFiles pulls back every serialized model the run produced.
func (e *Executor) readModelFiles(ctx context.Context, sb Sandbox, outcome *Outcome) {
	for _, name := range outcome.Files {
		if !strings.HasSuffix(name, ".pkl") {
			continue
		}
		data, err := sb.ReadFile(ctx, name)
		if err != nil {
			slog.Warn("model file readback failed", "file", name, "error", err.Error())
			continue
		}
		if outcome.ModelFiles == nil {
			outcome.ModelFiles = make(map[string][]byte)
		}
		outcome.ModelFiles[name] = data
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
