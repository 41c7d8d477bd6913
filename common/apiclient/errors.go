package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"authentiscan/common/models"
)

// User-facing messages for failures without a server-provided detail
const (
	MsgNetwork    = "Unable to connect to the server. Please check your connection and try again."
	MsgUnexpected = "An unexpected error occurred. Please try again."
	MsgRequest    = "The request could not be completed. Please try again."
)

// AsAPIError normalizes any error into the *models.APIError shape.
// It returns nil for a nil error.
func AsAPIError(err error) *models.APIError {
	if err == nil {
		return nil
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &models.APIError{Detail: MsgUnexpected, Status: http.StatusInternalServerError}
}

// IsNetworkError reports whether err means the API could not be reached
func IsNetworkError(err error) bool {
	var apiErr *models.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable && apiErr.Detail == MsgNetwork
}

func networkError() *models.APIError {
	return &models.APIError{Detail: MsgNetwork, Status: http.StatusServiceUnavailable}
}

// unexpectedError keeps the cause for logging while presenting the generic message
type unexpectedError struct {
	apiErr *models.APIError
	cause  error
}

func (e *unexpectedError) Error() string { return e.cause.Error() }

func (e *unexpectedError) Unwrap() []error { return []error{e.apiErr, e.cause} }

func unexpected(cause error) error {
	return &unexpectedError{
		apiErr: &models.APIError{Detail: MsgUnexpected, Status: http.StatusInternalServerError},
		cause:  cause,
	}
}

// detailMessage extracts the server's error message from a response body.
// It understands {"detail": "..."}, FastAPI validation lists and
// {"message": "..."}; anything else yields MsgRequest.
func detailMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return MsgRequest
	}

	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	if strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	if strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	return MsgRequest
}
