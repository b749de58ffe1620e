package config

import "errors"

// ErrInvalidConfig marks a setting that fails Validate; ErrLoadConfig marks
// an unreadable file or an env value that cannot be decoded.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLoadConfig    = errors.New("load configuration")
)
