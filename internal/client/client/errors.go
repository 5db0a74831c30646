package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/doccontrol/internal/common"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = common.ErrValidation
	ErrUnavailable  = errors.New("server unavailable")
	ErrTransport    = errors.New("transport error")
)

// APIError is a non-2xx response normalised to one of the sentinels above.
// errors.Is matches the sentinel; Detail carries the server's message.
type APIError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
