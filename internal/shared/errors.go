package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrTokenInvalid occurs when a bearer token resolves to no user.
	ErrTokenInvalid = errors.New("token invalid or expired")
)
