package kintone

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the base URL or token is missing.
var ErrNotConfigured = errors.New("kintone: base url and api token are required")

// APIError is a non-2xx response. Body is the verbatim server text.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	ID         string `json:"id"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("kintone: API returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("kintone: API returned %d", e.StatusCode)
}

// Detail returns the server response for display to the operator.
func (e *APIError) Detail() string {
	return e.Body
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr = &APIError{}
	}
	apiErr.StatusCode = status
	apiErr.Body = string(body)
	return apiErr
}
