package repository

import "errors"

// Sentinel kinds for roster errors.
var (
	ErrInvalidLimit    = errors.New("invalid roster limit")
	ErrMalformedRoster = errors.New("malformed roster")
	ErrRosterLoad      = errors.New("roster load failed")
)
