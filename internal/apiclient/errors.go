package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match the sentinel for the status code
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuthFailure reports whether the API rejected the caller's credential
// (401) or privileges (403). Callers should clear the session and send the
// user back to sign-in.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// newAPIError extracts a message from the body. The API answers with
// {"detail": "..."} on errors; anything else is passed through trimmed.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}

	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil {
		var detail string
		switch {
		case len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil:
			msg = detail
		case len(payload.Detail) > 0:
			// validation errors come back as a list of objects
			msg = string(payload.Detail)
		case payload.Error != "":
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &APIError{StatusCode: status, Message: msg}
}
