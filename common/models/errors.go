package models

import "fmt"

// APIError is the single normalized error shape for classification API failures
type APIError struct {
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

// ErrorResponse represents an error response served by the web front's JSON routes
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}
