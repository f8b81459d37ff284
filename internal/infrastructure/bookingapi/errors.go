package bookingapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code classifies API errors the client reacts to.
type Code int

const (
	CodeUnknown Code = iota
	CodeTokenExpired
)

// tokenExpiredMessage is what the backend puts in "message", quotes included.
const tokenExpiredMessage = `"Token expired"`

// APIError is a non-2xx response from the booking API.
type APIError struct {
	Endpoint   string
	Status     int
	StatusText string
	Message    string
	Code       Code
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Endpoint, e.Status, e.Detail())
}

// Detail is the server message, or the status text when there was none.
func (e *APIError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.StatusText
}

// NewAPIError builds an APIError from a raw response body.
func NewAPIError(endpoint string, status int, body []byte) *APIError {
	e := &APIError{
		Endpoint:   endpoint,
		Status:     status,
		StatusText: http.StatusText(status),
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		e.Message = parsed.Message
	}
	if status == http.StatusBadRequest && isTokenExpired(e.Message) {
		e.Code = CodeTokenExpired
	}
	return e
}

func isTokenExpired(msg string) bool {
	msg = strings.TrimSpace(msg)
	return msg == tokenExpiredMessage || msg == strings.Trim(tokenExpiredMessage, `"`)
}

// IsTokenExpired reports whether err carries the expired-token signal.
func IsTokenExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeTokenExpired
}

// NetworkError means no response was received.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError means a 2xx response body could not be parsed.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
