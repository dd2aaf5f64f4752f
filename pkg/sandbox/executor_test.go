package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/datakiln/datakiln/pkg/api"
)

// fakeSandbox is a scripted Sandbox for executor tests.
type fakeSandbox struct {
	files       map[string][]byte
	writeErr    error
	runs        []string
	runResults  []*RunResult
	runErr      error
	closed      bool
	installReqs []string
}

func (f *fakeSandbox) WriteFile(_ context.Context, name string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.files == nil {
		f.files = make(map[string][]byte)
	}
	f.files[name] = data
	return nil
}

func (f *fakeSandbox) ReadFile(_ context.Context, name string) ([]byte, error) {
	data, ok := f.files[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return data, nil
}

func (f *fakeSandbox) ListFiles(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeSandbox) Run(_ context.Context, code string, opts RunOptions) (*RunResult, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	if len(opts.Requirements) > 0 {
		f.installReqs = opts.Requirements
	}
	f.runs = append(f.runs, code)
	if len(f.runResults) > 0 {
		result := f.runResults[0]
		f.runResults = f.runResults[1:]
		return result, nil
	}
	return &RunResult{Stdout: "ok"}, nil
}

func (f *fakeSandbox) Close(_ context.Context) error {
	f.closed = true
	return nil
}

type fakeBackend struct {
	sandbox   *fakeSandbox
	createErr error
}

func (b *fakeBackend) Create(_ context.Context) (Sandbox, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	return b.sandbox, nil
}

func TestExecutePreprocessSuccess(t *testing.T) {
	sb := &fakeSandbox{
		runResults: []*RunResult{{Stdout: SavedMarker + " cleaned_data.csv"}},
	}
	// The harness save is simulated by pre-seeding the output file at
	// Run time; the fake cannot execute Python, so seed it up front.
	sb.files = map[string][]byte{"cleaned_data.csv": []byte("a,b\n1,2\n")}

	exec := NewExecutor(&fakeBackend{sandbox: sb}, Config{})
	outcome, err := exec.Execute(context.Background(), api.KindPreprocess, "cleaned_data = df", []byte("a,b\n1,2\n3,4\n"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !outcome.ArtifactExists {
		t.Error("artifact should exist")
	}
	if string(outcome.Artifact) != "a,b\n1,2\n" {
		t.Errorf("artifact = %q", outcome.Artifact)
	}
	if !sb.closed {
		t.Error("sandbox not closed")
	}
	if _, ok := sb.files["uploaded_data.csv"]; !ok {
		t.Error("input dataset not uploaded under uploaded_data.csv")
	}
	if len(sb.runs) != 1 {
		t.Fatalf("runs = %d, want 1 (no install phase for preprocess)", len(sb.runs))
	}
	if !strings.Contains(sb.runs[0], "cleaned_data = df") {
		t.Error("generated code not included in harness")
	}
}

func TestExecuteArtifactAbsentIsNotAnError(t *testing.T) {
	sb := &fakeSandbox{
		runResults: []*RunResult{{Stderr: "Traceback (most recent call last):\nKeyError: 'age'"}},
	}

	exec := NewExecutor(&fakeBackend{sandbox: sb}, Config{})
	outcome, err := exec.Execute(context.Background(), api.KindPreprocess, "cleaned_data = df[df.age]", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("in-sandbox failure must not surface as an error, got %v", err)
	}

	if outcome.ArtifactExists {
		t.Error("artifact should be absent")
	}
	if !strings.Contains(outcome.Stderr, "Traceback") {
		t.Errorf("stderr lost: %q", outcome.Stderr)
	}
}

func TestExecuteTrainInstallPhase(t *testing.T) {
	results := []byte(`{"Random_Forest":{"accuracy":0.91},"XGBoost":{"accuracy":0.94}}`)
	sb := &fakeSandbox{
		files: map[string][]byte{
			"model_results.json": results,
			"xgboost_model.pkl":  []byte("blob"),
		},
	}

	exec := NewExecutor(&fakeBackend{sandbox: sb}, Config{})
	outcome, err := exec.Execute(context.Background(), api.KindTrain, "model_results = {}", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(sb.runs) != 2 {
		t.Fatalf("runs = %d, want 2 (install phase then run phase)", len(sb.runs))
	}
	if len(sb.installReqs) == 0 {
		t.Error("install phase carried no requirements")
	}
	if _, ok := sb.files["cleaned_data.csv"]; !ok {
		t.Error("training input not uploaded under cleaned_data.csv")
	}

	if !outcome.ArtifactExists {
		t.Fatal("results document should exist")
	}
	if len(outcome.ModelScores) != 2 {
		t.Fatalf("model scores = %d, want 2", len(outcome.ModelScores))
	}
	if outcome.ModelScores[0].Name != "XGBoost" {
		t.Errorf("best model = %q, want XGBoost (sorted by accuracy)", outcome.ModelScores[0].Name)
	}
	if string(outcome.ModelFiles["xgboost_model.pkl"]) != "blob" {
		t.Error("model file not read back")
	}
}

func TestExecuteCreateFailureIsFatal(t *testing.T) {
	exec := NewExecutor(&fakeBackend{createErr: errors.New("no capacity")}, Config{})
	_, err := exec.Execute(context.Background(), api.KindPreprocess, "x", []byte("a\n"))
	if err == nil {
		t.Fatal("expected error when sandbox creation fails")
	}
}

func TestExecuteUploadFailureIsFatal(t *testing.T) {
	sb := &fakeSandbox{writeErr: errors.New("connection reset")}
	exec := NewExecutor(&fakeBackend{sandbox: sb}, Config{})
	_, err := exec.Execute(context.Background(), api.KindPreprocess, "x", []byte("a\n"))
	if err == nil {
		t.Fatal("expected error when upload fails")
	}
	if !sb.closed {
		t.Error("sandbox must be closed even on upload failure")
	}
}

func TestExecuteRunTransportFailureIsFatal(t *testing.T) {
	sb := &fakeSandbox{runErr: errors.New("connection refused")}
	exec := NewExecutor(&fakeBackend{sandbox: sb}, Config{})
	_, err := exec.Execute(context.Background(), api.KindPreprocess, "x", []byte("a\n"))
	if err == nil {
		t.Fatal("expected error when the run request fails")
	}
}

func TestExecuteMalformedResultsKeepsRawArtifact(t *testing.T) {
	sb := &fakeSandbox{
		files: map[string][]byte{"model_results.json": []byte("not json")},
	}

	exec := NewExecutor(&fakeBackend{sandbox: sb}, Config{})
	outcome, err := exec.Execute(context.Background(), api.KindTrain, "model_results = {}", []byte("a\n"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !outcome.ArtifactExists {
		t.Error("artifact should exist even when unparseable")
	}
	if outcome.ModelScores != nil {
		t.Error("malformed results should yield no scores")
	}
	if string(outcome.Artifact) != "not json" {
		t.Error("raw artifact bytes lost")
	}
}

func TestConfigTimeouts(t *testing.T) {
	cfg := Config{}.defaults()
	if cfg.timeout(api.KindTune) <= cfg.timeout(api.KindTrain) {
		t.Error("tuning timeout must exceed training timeout")
	}
	if cfg.timeout(api.KindPreprocess) != DefaultPreprocessTimeout {
		t.Errorf("preprocess timeout = %s", cfg.timeout(api.KindPreprocess))
	}
}
