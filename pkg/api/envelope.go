package api

import "encoding/json"

// Envelope is the top-level shape of every HTTP response. Success
// responses carry Data and optionally Message; failures carry Error.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// NewEnvelope wraps a payload in a success envelope. Marshalling
// failures are reported as server errors rather than dropped.
func NewEnvelope(data any, message string) Envelope {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{
			Success: false,
			Error:   NewServerError("encode response payload: " + err.Error()),
		}
	}
	return Envelope{Success: true, Data: raw, Message: message}
}

// NewErrorEnvelope wraps an APIError in a failure envelope.
func NewErrorEnvelope(apiErr *APIError) Envelope {
	return Envelope{Success: false, Error: apiErr}
}
