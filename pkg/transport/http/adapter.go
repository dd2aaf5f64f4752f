package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datakiln/datakiln/pkg/api"
	"github.com/datakiln/datakiln/pkg/observability"
	"github.com/datakiln/datakiln/pkg/transport"
)

// Adapter serves the datakiln pipeline API over HTTP.
// It routes requests to the orchestrator and serializes results into the
// JSON envelope.
type Adapter struct {
	pipe  transport.Pipeline
	guard *transport.RunGuard
	mux   *http.ServeMux
	cfg   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// MaxBodySize caps request bodies, primarily CSV uploads.
	MaxBodySize int64

	// MetricsEnabled mounts the Prometheus handler at MetricsPath.
	MetricsEnabled bool
	MetricsPath    string

	// Ready reports readiness of downstream dependencies. Optional.
	Ready func(ctx context.Context) error
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:    64 << 20, // 64 MiB
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
}

// NewAdapter creates an HTTP adapter for the given pipeline.
func NewAdapter(pipe transport.Pipeline, cfg Config) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultConfig().MetricsPath
	}

	a := &Adapter{
		pipe:  pipe,
		guard: transport.NewRunGuard(),
		mux:   http.NewServeMux(),
		cfg:   cfg,
	}

	a.mux.HandleFunc("POST /api/upload", a.handleUpload)
	a.mux.HandleFunc("POST /api/analyze", a.handleAnalyze)
	a.mux.HandleFunc("POST /api/generate-preprocessing", a.handleGenerate(api.KindPreprocess))
	a.mux.HandleFunc("POST /api/execute-preprocessing", a.handleExecute(api.KindPreprocess))
	a.mux.HandleFunc("POST /api/generate-training", a.handleGenerate(api.KindTrain))
	a.mux.HandleFunc("POST /api/execute-training", a.handleExecute(api.KindTrain))
	a.mux.HandleFunc("POST /api/generate-tuning", a.handleGenerate(api.KindTune))
	a.mux.HandleFunc("POST /api/execute-tuning", a.handleExecute(api.KindTune))
	a.mux.HandleFunc("GET /api/experiments", a.handleListExperiments)
	a.mux.HandleFunc("GET /api/experiments/{id}", a.handleGetExperiment)
	a.mux.HandleFunc("GET /api/files", a.handleListFiles)
	a.mux.HandleFunc("DELETE /api/files/{key...}", a.handleDeleteFile)
	a.mux.HandleFunc("GET /api/download/{key...}", a.handleDownload)
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)

	if cfg.MetricsEnabled {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// Handler returns the adapter's routing handler.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleUpload accepts a CSV dataset as multipart form data under the
// "file" field, or as a raw request body with an X-Filename header.
func (a *Adapter) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxBodySize)

	filename, data, apiErr := readUpload(r)
	if apiErr != nil {
		transport.WriteError(w, apiErr)
		return
	}

	result, err := a.pipe.Upload(r.Context(), filename, data)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	transport.WriteEnvelope(w, http.StatusOK, result, "File uploaded successfully")
}

// readUpload extracts the uploaded filename and bytes from the request.
func readUpload(r *http.Request) (string, []byte, *api.APIError) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, api.NewInvalidRequestError("file", "missing multipart field \"file\"")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, api.NewInvalidRequestError("file", "reading upload: "+err.Error())
		}
		return header.Filename, data, nil
	}

	// Raw body fallback.
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, api.NewInvalidRequestError("body", "reading upload: "+err.Error())
	}
	filename := r.Header.Get("X-Filename")
	if filename == "" {
		filename = "uploaded_data.csv"
	}
	return filename, data, nil
}

type analyzeRequest struct {
	DatasetKey   string `json:"dataset_key"`
	TargetColumn string `json:"target_column"`
}

func (a *Adapter) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if apiErr := decodeJSON(r, &req); apiErr != nil {
		transport.WriteError(w, apiErr)
		return
	}

	exp, err := a.pipe.Analyze(r.Context(), req.DatasetKey, req.TargetColumn)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	transport.WriteEnvelope(w, http.StatusOK, exp, "Analysis complete")
}

type experimentRequest struct {
	ExperimentID string `json:"experiment_id"`
}

// handleGenerate returns a handler that generates code for the given
// pipeline stage.
func (a *Adapter) handleGenerate(kind api.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req experimentRequest
		if apiErr := decodeJSON(r, &req); apiErr != nil {
			transport.WriteError(w, apiErr)
			return
		}

		start := time.Now()
		artifact, err := a.pipe.Generate(r.Context(), req.ExperimentID, kind)
		if err != nil {
			observability.ObserveGeneration(string(kind), "error", time.Since(start).Seconds())
			transport.WriteError(w, err)
			return
		}
		observability.ObserveGeneration(string(kind), "ok", time.Since(start).Seconds())

		transport.WriteEnvelope(w, http.StatusOK, artifact, "Code generated")
	}
}

// handleExecute returns a handler that runs the stage's generated code in
// a sandbox. At most one execution per experiment runs at a time.
func (a *Adapter) handleExecute(kind api.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req experimentRequest
		if apiErr := decodeJSON(r, &req); apiErr != nil {
			transport.WriteError(w, apiErr)
			return
		}
		if req.ExperimentID == "" {
			transport.WriteError(w, api.NewInvalidRequestError("experiment_id", "experiment_id is required"))
			return
		}

		if !a.guard.TryAcquire(req.ExperimentID) {
			transport.WriteErrorStatus(w,
				api.NewTooManyRequestsError("an execution for this experiment is already running"),
				http.StatusConflict)
			return
		}
		defer a.guard.Release(req.ExperimentID)

		observability.ExecutionsActive.Inc()
		defer observability.ExecutionsActive.Dec()

		result, err := a.pipe.Execute(r.Context(), req.ExperimentID, kind)
		if err != nil {
			transport.WriteError(w, err)
			return
		}

		observability.ObserveExecution(string(kind), string(result.Classification),
			float64(result.Duration)/1000)

		transport.WriteEnvelope(w, http.StatusOK, result, "Execution finished")
	}
}

func (a *Adapter) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := a.pipe.GetExperiment(r.Context(), r.PathValue("id"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteEnvelope(w, http.StatusOK, exp, "")
}

func (a *Adapter) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			transport.WriteError(w, api.NewInvalidRequestError("limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	exps, err := a.pipe.ListExperiments(r.Context(), limit)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteEnvelope(w, http.StatusOK, exps, "")
}

func (a *Adapter) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := a.pipe.ListArtifacts(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteEnvelope(w, http.StatusOK, files, "")
}

func (a *Adapter) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := a.pipe.DeleteArtifact(r.Context(), key); err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteEnvelope(w, http.StatusOK, nil, "deleted "+key)
}

func (a *Adapter) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	data, err := a.pipe.Download(r.Context(), key)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeForKey(key))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+baseName(key)+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Ready != nil {
		if err := a.cfg.Ready(r.Context()); err != nil {
			transport.WriteErrorStatus(w, api.NewServerError("not ready: "+err.Error()), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ready"}`))
}

// decodeJSON decodes a JSON request body, rejecting unknown shapes with
// an invalid_request error.
func decodeJSON(r *http.Request, dst any) *api.APIError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return api.NewInvalidRequestError("body", "invalid JSON body: "+err.Error())
	}
	return nil
}

// contentTypeForKey picks a Content-Type from the artifact extension.
func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".csv"):
		return "text/csv"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".py"):
		return "text/x-python"
	default:
		return "application/octet-stream"
	}
}

// baseName returns the last path segment of a storage key.
func baseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
