package common

import "errors"

var (
	// diff / content errors
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// task board errors
	ErrInvalidTransition = errors.New("invalid status transition")

	// checkout lifecycle errors
	ErrNotCheckedOut = errors.New("document is not checked out")
	ErrNotLockHolder = errors.New("document is checked out by another user")

	// ErrStaleResponse marks a response that arrived after a newer request
	// superseded it. Callers drop it silently.
	ErrStaleResponse = errors.New("stale response discarded")

	ErrValidation = errors.New("validation error")
)
