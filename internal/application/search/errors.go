package search

import (
	"errors"
	"fmt"

	"github.com/example/tablesearch/internal/infrastructure/bookingapi"
)

// AuthKind says why an anonymous login failed.
type AuthKind int

const (
	// AuthHTTP means the server answered with an error status.
	AuthHTTP AuthKind = iota + 1
	// AuthNetwork means no usable response came back.
	AuthNetwork
)

// AuthError is returned by SessionManager.Acquire.
type AuthError struct {
	Kind    AuthKind
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Kind == AuthHTTP {
		return fmt.Sprintf("Login failed: %d - %s", e.Status, e.Message)
	}
	return "An unexpected error occurred while logging in."
}

func (e *AuthError) Unwrap() error { return e.Err }

func newAuthError(err error) *AuthError {
	var apiErr *bookingapi.APIError
	if errors.As(err, &apiErr) {
		return &AuthError{Kind: AuthHTTP, Status: apiErr.Status, Message: apiErr.Detail(), Err: err}
	}
	return &AuthError{Kind: AuthNetwork, Err: err}
}

// Op names a session operation for error reporting.
type Op int

const (
	OpSearch Op = iota + 1
	OpFetch
	OpLoadMore
)

func (o Op) String() string {
	switch o {
	case OpSearch:
		return "search"
	case OpFetch:
		return "fetch"
	case OpLoadMore:
		return "load_more"
	}
	return "unknown"
}

func (o Op) prefix() string {
	switch o {
	case OpFetch:
		return "Fetching results failed"
	case OpLoadMore:
		return "Loading more results failed"
	}
	return "Search failed"
}

func (o Op) networkMessage() string {
	switch o {
	case OpFetch:
		return "Failed to fetch search results."
	case OpLoadMore:
		return "Failed to load more results."
	}
	return "Failed to search restaurants."
}

// ErrorKind classifies a SearchError.
type ErrorKind int

const (
	KindHTTP ErrorKind = iota + 1
	KindNetwork
	KindMissingToken
	KindMissingSearchID
)

// SearchError is what ends up, rendered, in State.Error.
type SearchError struct {
	Op      Op
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *SearchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: %d - %s", e.Op.prefix(), e.Status, e.Message)
	case KindMissingToken:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s", e.Op.prefix(), e.Err.Error())
		}
		return e.Op.prefix() + ": no auth token"
	case KindMissingSearchID:
		return e.Op.prefix() + ": no search id"
	}
	return e.Op.networkMessage()
}

func (e *SearchError) Unwrap() error { return e.Err }

func classify(op Op, err error) *SearchError {
	var se *SearchError
	if errors.As(err, &se) {
		return se
	}
	var apiErr *bookingapi.APIError
	if errors.As(err, &apiErr) {
		return &SearchError{Op: op, Kind: KindHTTP, Status: apiErr.Status, Message: apiErr.Detail(), Err: err}
	}
	return &SearchError{Op: op, Kind: KindNetwork, Err: err}
}
