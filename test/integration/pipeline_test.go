package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/datakiln/datakiln/pkg/api"
	"github.com/datakiln/datakiln/pkg/pipeline"
)

// TestFullPipelineFlow drives the complete workflow: upload, analyze,
// then generate and execute each of the three stages in order.
func TestFullPipelineFlow(t *testing.T) {
	datasetKey := uploadCSV(t, "customers.csv", []byte(testCSV))

	// Analyze.
	resp := postJSON(t, testEnv.BaseURL()+"/api/analyze", map[string]string{
		"dataset_key":   datasetKey,
		"target_column": "label",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze returned %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var exp api.Experiment
	decodeData(t, decodeEnvelope(t, resp), &exp)
	if exp.ID == "" {
		t.Fatal("analyze returned empty experiment ID")
	}
	if exp.TaskType != "binary_classification" {
		t.Errorf("task type = %q, want binary_classification", exp.TaskType)
	}
	if exp.Rows != 12 {
		t.Errorf("rows = %d, want 12", exp.Rows)
	}

	stages := []struct {
		name    string
		wantKey string
	}{
		{"preprocessing", "cleaned_data_key"},
		{"training", "results_key"},
		{"tuning", "results_key"},
	}

	for _, stage := range stages {
		// Generate.
		resp = postJSON(t, testEnv.BaseURL()+"/api/generate-"+stage.name, map[string]string{
			"experiment_id": exp.ID,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("generate-%s returned %d: %s", stage.name, resp.StatusCode, readBody(t, resp))
		}
		var artifact api.GeneratedArtifact
		decodeData(t, decodeEnvelope(t, resp), &artifact)
		if artifact.Code == "" {
			t.Fatalf("generate-%s returned empty code", stage.name)
		}
		if !artifact.SyntaxValid {
			t.Errorf("generate-%s code failed validation: %v", stage.name, artifact.Issues)
		}
		if artifact.CodeKey == "" {
			t.Errorf("generate-%s did not persist the code", stage.name)
		}

		// Execute.
		resp = postJSON(t, testEnv.BaseURL()+"/api/execute-"+stage.name, map[string]string{
			"experiment_id": exp.ID,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("execute-%s returned %d: %s", stage.name, resp.StatusCode, readBody(t, resp))
		}
		var result api.ExecutionResult
		decodeData(t, decodeEnvelope(t, resp), &result)
		if result.Classification != api.ClassSuccess {
			t.Fatalf("execute-%s classification = %q, want success (output=%q error=%q)",
				stage.name, result.Classification, result.Output, result.Error)
		}
		if !result.Success {
			t.Errorf("execute-%s success = false", stage.name)
		}
	}

	// The experiment record now carries all artifact keys.
	resp = getURL(t, testEnv.BaseURL()+"/api/experiments/"+exp.ID)
	var final api.Experiment
	decodeData(t, decodeEnvelope(t, resp), &final)
	if final.CleanedDataKey == "" {
		t.Error("experiment missing cleaned data key after preprocessing")
	}
	if final.ModelResultsKey == "" {
		t.Error("experiment missing model results key after training")
	}
	if final.TuningResultsKey == "" {
		t.Error("experiment missing tuning results key after tuning")
	}

	// Cleaned dataset downloads byte-identical to the upload.
	resp = getURL(t, testEnv.BaseURL()+"/api/download/"+final.CleanedDataKey)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download returned %d", resp.StatusCode)
	}
	if body := readBody(t, resp); body != testCSV {
		t.Errorf("downloaded cleaned data does not match upload")
	}
}

func TestExecutionResultCarriesModelScores(t *testing.T) {
	datasetKey := uploadCSV(t, "scores.csv", []byte(testCSV))

	resp := postJSON(t, testEnv.BaseURL()+"/api/analyze", map[string]string{
		"dataset_key":   datasetKey,
		"target_column": "label",
	})
	var exp api.Experiment
	decodeData(t, decodeEnvelope(t, resp), &exp)

	for _, stage := range []string{"preprocessing", "training"} {
		resp = postJSON(t, testEnv.BaseURL()+"/api/generate-"+stage, map[string]string{"experiment_id": exp.ID})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("generate-%s returned %d", stage, resp.StatusCode)
		}
		resp.Body.Close()
		resp = postJSON(t, testEnv.BaseURL()+"/api/execute-"+stage, map[string]string{"experiment_id": exp.ID})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("execute-%s returned %d", stage, resp.StatusCode)
		}
		if stage == "preprocessing" {
			resp.Body.Close()
		}
	}

	var result api.ExecutionResult
	decodeData(t, decodeEnvelope(t, resp), &result)

	if len(result.ModelScores) != 2 {
		t.Fatalf("model scores = %d, want 2", len(result.ModelScores))
	}
	// Scores come back sorted best first.
	if result.ModelScores[0].Name != "random_forest" || result.ModelScores[0].Accuracy != 0.95 {
		t.Errorf("best score = %+v, want random_forest 0.95", result.ModelScores[0])
	}
	if len(result.ModelFiles) != 2 {
		t.Errorf("model files = %d, want 2", len(result.ModelFiles))
	}
}

func TestUploadReturnsPreview(t *testing.T) {
	resp := postRaw(t, testEnv.BaseURL()+"/api/upload", "preview.csv", []byte(testCSV))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload returned %d", resp.StatusCode)
	}

	var result pipeline.UploadResult
	decodeData(t, decodeEnvelope(t, resp), &result)

	want := []string{"age", "income", "label"}
	if len(result.ColumnNames) != len(want) {
		t.Fatalf("column names = %v, want %v", result.ColumnNames, want)
	}
	for i, name := range want {
		if result.ColumnNames[i] != name {
			t.Errorf("column %d = %q, want %q", i, result.ColumnNames[i], name)
		}
	}
	if len(result.Preview) != 5 {
		t.Fatalf("preview rows = %d, want 5", len(result.Preview))
	}
	if result.Preview[0][0] != "25" {
		t.Errorf("first preview cell = %q, want 25", result.Preview[0][0])
	}
}

func TestListFilesAfterUpload(t *testing.T) {
	uploadCSV(t, "listing.csv", []byte(testCSV))

	resp := getURL(t, testEnv.BaseURL()+"/api/files?prefix=uploads/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("files returned %d", resp.StatusCode)
	}
	var listing pipeline.ArtifactListing
	decodeData(t, decodeEnvelope(t, resp), &listing)
	if listing.Count == 0 {
		t.Fatal("expected at least one uploaded file")
	}
	if listing.TotalBytes == 0 {
		t.Error("total bytes not reported")
	}
	found := false
	for _, info := range listing.Files {
		if strings.Contains(info.Key, "listing") {
			found = true
			if info.Size != int64(len(testCSV)) {
				t.Errorf("size = %d, want %d", info.Size, len(testCSV))
			}
		}
	}
	if !found {
		t.Errorf("uploaded file not in listing: %+v", listing.Files)
	}
}

func TestDeleteUploadedFile(t *testing.T) {
	key := uploadCSV(t, "doomed.csv", []byte(testCSV))

	req, err := http.NewRequest(http.MethodDelete, testEnv.BaseURL()+"/api/files/"+key, nil)
	if err != nil {
		t.Fatalf("creating delete request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete returned %d: %s", resp.StatusCode, readBody(t, resp))
	}
	resp.Body.Close()

	resp = getURL(t, testEnv.BaseURL()+"/api/download/"+key)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("download after delete = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestListExperiments(t *testing.T) {
	datasetKey := uploadCSV(t, "listexp.csv", []byte(testCSV))
	resp := postJSON(t, testEnv.BaseURL()+"/api/analyze", map[string]string{
		"dataset_key":   datasetKey,
		"target_column": "label",
	})
	var exp api.Experiment
	decodeData(t, decodeEnvelope(t, resp), &exp)

	resp = getURL(t, testEnv.BaseURL()+"/api/experiments")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("experiments returned %d", resp.StatusCode)
	}
	var exps []api.Experiment
	decodeData(t, decodeEnvelope(t, resp), &exps)

	found := false
	for _, e := range exps {
		if e.ID == exp.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("experiment %s not in listing", exp.ID)
	}
}
