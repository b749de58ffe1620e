package scoring

import "errors"

// Sentinel error kinds for scorer failures.
var (
	ErrScoring       = errors.New("scoring failed")
	ErrCircuitOpen   = errors.New("scorer circuit open")
	ErrInvalidSpec   = errors.New("invalid model spec")
	ErrUnknownScorer = errors.New("unknown model type")
)
