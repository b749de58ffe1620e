// Package scoring contains the trained classifiers that turn feature rows into
// probabilities of the positive class.
package scoring

import (
	"context"
	"fmt"
	"time"
)

// Model types accepted by New.
const (
	TypeLogistic = "logistic"
	TypeRPC      = "rpc"
)

// Scorer is the opaque trained classifier. PredictProbability returns one
// probability per row, in row order. Every row is ordered by the column list
// the scorer was built with.
type Scorer interface {
	Name() string
	PredictProbability(ctx context.Context, rows [][]float64) ([]float64, error)
}

// Spec is the model section of a trained artifact.
type Spec struct {
	Type     string
	Bias     *float64
	Weights  map[string]float64
	Endpoint string
	Timeout  time.Duration
}

// New builds the scorer described by spec, bound to columns.
func New(spec Spec, columns []string, opts ...RPCOption) (Scorer, error) {
	switch spec.Type {
	case TypeLogistic:
		if spec.Bias == nil || spec.Weights == nil {
			return nil, fmt.Errorf("%w: logistic model needs bias and weights", ErrInvalidSpec)
		}
		return NewLogistic(*spec.Bias, spec.Weights, columns), nil
	case TypeRPC:
		if spec.Endpoint == "" {
			return nil, fmt.Errorf("%w: rpc model needs an endpoint", ErrInvalidSpec)
		}
		if spec.Timeout > 0 {
			opts = append([]RPCOption{WithTimeout(spec.Timeout)}, opts...)
		}
		return NewRPC(spec.Endpoint, columns, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScorer, spec.Type)
	}
}
