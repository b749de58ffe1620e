package ranking

import "errors"

// Sentinel error kinds for ranking.
var (
	ErrScoring     = errors.New("ranking: scoring failed")
	ErrInvalidTopN = errors.New("ranking: top n must be positive")
)
