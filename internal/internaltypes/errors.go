package internaltypes

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrEmptyToken = errors.New("login response carried no token")
	ErrNoSession  = errors.New("no search session")
)
