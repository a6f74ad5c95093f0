package activity

import "errors"

// ErrInvalidInput is returned for a nil entry or bad list options.
var ErrInvalidInput = errors.New("invalid input")
