package features

import "errors"

// ErrInvalidInput reports a trainee profile that cannot be turned into rows.
var ErrInvalidInput = errors.New("invalid input")
