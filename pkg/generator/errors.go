package generator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/datakiln/datakiln/pkg/api"
)

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// mapHTTPError converts a non-2xx backend response into an APIError,
// extracting a descriptive message from the body when one is present.
func mapHTTPError(resp *http.Response) *api.APIError {
	message := extractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid request to generation backend"
		}
		return api.NewInvalidRequestError("", message)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "generation backend authentication failed"
		}
		return api.NewGenerationError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "generation backend rate limit exceeded"
		}
		return api.NewTooManyRequestsError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("generation backend error (HTTP %d)", resp.StatusCode)
		}
		return api.NewGenerationError(message)
	}
}

// mapNetworkError converts a connection-level failure into an APIError.
func mapNetworkError(err error) *api.APIError {
	return api.NewGenerationError(fmt.Sprintf("generation backend connection error: %s", err.Error()))
}

func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var errResp chatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return ""
}
