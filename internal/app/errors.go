package service

import "errors"

// Sentinel error kinds for the recommendation service.
var (
	ErrNoCandidates = errors.New("no coach candidates available")
	ErrEmptyBatch   = errors.New("batch has no trainees")
	ErrNotReady     = errors.New("service has no schema or roster")
)
