package scoring

import (
	"context"
	"fmt"
	"math"
)

// LogisticScorer is a logistic regression: sigmoid(bias + w·x).
type LogisticScorer struct {
	bias float64
	coef []float64
}

// NewLogistic aligns named weights to columns. Columns without a weight get
// zero; weights naming unknown columns are ignored.
func NewLogistic(bias float64, weights map[string]float64, columns []string) *LogisticScorer {
	coef := make([]float64, len(columns))
	for i, c := range columns {
		coef[i] = weights[c]
	}
	return &LogisticScorer{bias: bias, coef: coef}
}

func (s *LogisticScorer) Name() string { return TypeLogistic }

func (s *LogisticScorer) PredictProbability(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScoring, err)
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.coef) {
			return nil, fmt.Errorf("%w: row %d has %d values, model expects %d", ErrScoring, i, len(row), len(s.coef))
		}
		z := s.bias
		for j, v := range row {
			z += s.coef[j] * v
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
