package domain

import "time"

// APIError is the machine-readable error half of the response envelope.
type APIError struct {
	Code    ErrorKind `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp string    `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

// OKResponse builds a success envelope.
func OKResponse(requestID string, data any) APIResponse {
	return APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}

// ErrorResponse builds a failure envelope from a tagged error.
func ErrorResponse(requestID string, kind ErrorKind, message string, details any) APIResponse {
	return APIResponse{
		Success: false,
		Error: &APIError{
			Code:    kind,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}
