package api

import (
	"encoding/json"
	"testing"
)

func TestPrimaryArtifactPresent(t *testing.T) {
	tests := []struct {
		name   string
		result ExecutionResult
		want   bool
	}{
		{
			name:   "preprocess with cleaned data",
			result: ExecutionResult{Kind: KindPreprocess, CleanedDataExists: true},
			want:   true,
		},
		{
			name:   "preprocess without cleaned data",
			result: ExecutionResult{Kind: KindPreprocess, CleanedDataExists: false, ResultsExists: true},
			want:   false,
		},
		{
			name:   "train with results",
			result: ExecutionResult{Kind: KindTrain, ResultsExists: true},
			want:   true,
		},
		{
			name:   "tune without results",
			result: ExecutionResult{Kind: KindTune, CleanedDataExists: true},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.PrimaryArtifactPresent(); got != tt.want {
				t.Errorf("PrimaryArtifactPresent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExperimentClone(t *testing.T) {
	orig := &Experiment{
		ID:       "exp_20250114_153042_a1b2c3d4",
		Filename: "data.csv",
		Analysis: json.RawMessage(`{"rows":10}`),
	}

	clone := orig.Clone()
	clone.Filename = "other.csv"
	clone.Analysis[2] = 'X'

	if orig.Filename != "data.csv" {
		t.Errorf("clone mutation leaked into original filename: %q", orig.Filename)
	}
	if string(orig.Analysis) != `{"rows":10}` {
		t.Errorf("clone mutation leaked into original analysis: %s", orig.Analysis)
	}
}

func TestEnvelopeMarshal(t *testing.T) {
	env := NewEnvelope(map[string]string{"id": "run_a1b2c3d4"}, "execution complete")

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var decoded struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Message string            `json:"message"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if !decoded.Success {
		t.Error("expected success envelope")
	}
	if decoded.Data["id"] != "run_a1b2c3d4" {
		t.Errorf("unexpected data: %v", decoded.Data)
	}
	if decoded.Message != "execution complete" {
		t.Errorf("unexpected message: %q", decoded.Message)
	}
}

func TestErrorEnvelope(t *testing.T) {
	env := NewErrorEnvelope(NewInvalidRequestError("target_column", "column not found"))

	if env.Success {
		t.Error("error envelope must not report success")
	}
	if env.Error == nil || env.Error.Type != ErrorTypeInvalidRequest {
		t.Errorf("unexpected error: %+v", env.Error)
	}
	if env.Error.Param != "target_column" {
		t.Errorf("unexpected param: %q", env.Error.Param)
	}
}
