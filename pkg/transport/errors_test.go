package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datakiln/datakiln/pkg/api"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  *api.APIError
		want int
	}{
		{"invalid request", api.NewInvalidRequestError("file", "missing"), http.StatusBadRequest},
		{"not found", api.NewNotFoundError("no such experiment"), http.StatusNotFound},
		{"too many requests", api.NewTooManyRequestsError("slow down"), http.StatusTooManyRequests},
		{"generation error", api.NewGenerationError("backend down"), http.StatusBadGateway},
		{"sandbox error", api.NewSandboxError("no capacity"), http.StatusBadGateway},
		{"storage error", api.NewStorageError("bucket gone"), http.StatusInternalServerError},
		{"server error", api.NewServerError("boom"), http.StatusInternalServerError},
		{"unknown type", &api.APIError{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromError(tt.err); got != tt.want {
				t.Errorf("HTTPStatusFromError(%s) = %d, want %d", tt.err.Type, got, tt.want)
			}
		})
	}
}

func TestWriteError_APIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, api.NewNotFoundError("experiment not found"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var env api.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if env.Success {
		t.Error("expected success=false")
	}
	if env.Error == nil || env.Error.Type != api.ErrorTypeNotFound {
		t.Errorf("error = %+v, want not_found", env.Error)
	}
}

func TestWriteError_WrapsPlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("unexpected"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var env api.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if env.Error == nil || env.Error.Type != api.ErrorTypeServerError {
		t.Errorf("error = %+v, want server_error", env.Error)
	}
}

func TestWriteEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteEnvelope(rec, http.StatusOK, map[string]string{"id": "exp_1"}, "created")

	var env api.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if !env.Success {
		t.Error("expected success=true")
	}
	if env.Message != "created" {
		t.Errorf("message = %q, want %q", env.Message, "created")
	}

	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if data["id"] != "exp_1" {
		t.Errorf("data.id = %q, want exp_1", data["id"])
	}
}
