package integration

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/datakiln/datakiln/pkg/api"
)

func TestInvalidJSON(t *testing.T) {
	resp, err := http.Post(
		testEnv.BaseURL()+"/api/analyze",
		"application/json",
		bytes.NewReader([]byte(`{invalid json`)),
	)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if env.Success {
		t.Error("expected success=false")
	}
	if env.Error == nil || env.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error = %+v, want invalid_request", env.Error)
	}
}

func TestUploadEmptyBody(t *testing.T) {
	resp, err := http.Post(testEnv.BaseURL()+"/api/upload", "text/csv", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
	} else {
		resp.Body.Close()
	}
}

func TestUploadNonCSV(t *testing.T) {
	resp, err := http.Post(testEnv.BaseURL()+"/api/upload", "text/csv",
		bytes.NewReader([]byte("just one column\nno commas here")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
	} else {
		resp.Body.Close()
	}
}

func TestAnalyzeUnknownDataset(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/api/analyze", map[string]string{
		"dataset_key":   "uploads/20240101120000_missing.csv",
		"target_column": "label",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", resp.StatusCode, readBody(t, resp))
	} else {
		resp.Body.Close()
	}
}

func TestAnalyzeMissingTarget(t *testing.T) {
	key := uploadCSV(t, "notarget.csv", []byte(testCSV))

	resp := postJSON(t, testEnv.BaseURL()+"/api/analyze", map[string]string{
		"dataset_key": key,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
	} else {
		resp.Body.Close()
	}
}

func TestExecuteBeforeGenerate(t *testing.T) {
	key := uploadCSV(t, "nogen.csv", []byte(testCSV))
	resp := postJSON(t, testEnv.BaseURL()+"/api/analyze", map[string]string{
		"dataset_key":   key,
		"target_column": "label",
	})
	var exp api.Experiment
	decodeData(t, decodeEnvelope(t, resp), &exp)

	resp = postJSON(t, testEnv.BaseURL()+"/api/execute-preprocessing", map[string]string{
		"experiment_id": exp.ID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
	} else {
		resp.Body.Close()
	}
}

func TestTrainingBeforePreprocessing(t *testing.T) {
	key := uploadCSV(t, "noclean.csv", []byte(testCSV))
	resp := postJSON(t, testEnv.BaseURL()+"/api/analyze", map[string]string{
		"dataset_key":   key,
		"target_column": "label",
	})
	var exp api.Experiment
	decodeData(t, decodeEnvelope(t, resp), &exp)

	resp = postJSON(t, testEnv.BaseURL()+"/api/generate-training", map[string]string{
		"experiment_id": exp.ID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate-training returned %d: %s", resp.StatusCode, readBody(t, resp))
	}
	resp.Body.Close()

	// Execution needs a cleaned dataset, which does not exist yet.
	resp = postJSON(t, testEnv.BaseURL()+"/api/execute-training", map[string]string{
		"experiment_id": exp.ID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", resp.StatusCode, readBody(t, resp))
	} else {
		resp.Body.Close()
	}
}

func TestGetUnknownExperiment(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/api/experiments/exp_does_not_exist")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Type != api.ErrorTypeNotFound {
		t.Errorf("error = %+v, want not_found", env.Error)
	}
}

func TestDownloadUnknownKey(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/api/download/uploads/20240101120000_gone.csv")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
