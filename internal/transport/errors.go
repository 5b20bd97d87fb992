package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// The dispatcher surfaces three distinct failure categories so callers can
// render them differently:
//
//   - RequestError:   the request could not be built (bad URL, bad body).
//   - TransportError: the request was sent but no response arrived.
//   - APIError:       a response arrived with a non-2xx status.

// RequestError wraps a failure to construct or encode a request.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return fmt.Sprintf("request setup failed: %v", e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

// TransportError wraps a failure where no HTTP response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("request failed: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response. Detail carries the server-provided
// human-readable message when the body contained one.
type APIError struct {
	StatusCode int
	Detail     string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// newAPIError extracts the server detail string from an error body.
// The backend answers with {"detail": "..."}; {"error": "..."} and
// {"message": "..."} are accepted as fallbacks.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail  string `json:"detail"`
		ErrMsg  string `json:"error"`
		Message string `json:"message"`
	}
	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			detail = payload.Detail
		case payload.ErrMsg != "":
			detail = payload.ErrMsg
		case payload.Message != "":
			detail = payload.Message
		}
	}
	if detail == "" {
		detail = strings.TrimSpace(string(body))
		if len(detail) > 200 {
			detail = detail[:200]
		}
	}
	return &APIError{StatusCode: status, Detail: detail, Body: body}
}

// Detail returns the best human-readable message for err: the server detail
// for API errors, the plain error text otherwise.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}
