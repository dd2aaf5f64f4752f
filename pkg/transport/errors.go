package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datakiln/datakiln/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Upstream failures (generation backend, sandbox) map to 502 since the
// service itself is healthy.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeGenerationError, api.ErrorTypeSandboxError:
		return http.StatusBadGateway
	case api.ErrorTypeServerError, api.ErrorTypeStorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteEnvelope writes a success envelope with the given payload and
// optional message.
func WriteEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.NewEnvelope(data, message))
}

// WriteError writes a failure envelope. Arbitrary errors are wrapped as
// server errors; *api.APIError values keep their type and derive the
// HTTP status from it.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewServerError(err.Error())
	}
	WriteErrorStatus(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteErrorStatus writes a failure envelope with an explicit status code.
func WriteErrorStatus(w http.ResponseWriter, apiErr *api.APIError, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.NewErrorEnvelope(apiErr))
}
