package member

import "errors"

// ErrInvalidInput is returned when the identity cannot be registered.
var ErrInvalidInput = errors.New("invalid input")
