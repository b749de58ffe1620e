// Package ranking scores feature rows and orders candidates by predicted
// suitability.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/coachfit/internal/domain/features"
	"github.com/okian/coachfit/internal/domain/model"
	"github.com/okian/coachfit/internal/domain/scoring"
)

// Rank scores all pairs with a single scorer call and returns the best topN
// candidates, highest score first. Equal scores keep their input order.
// topN larger than the number of pairs returns every pair.
func Rank(ctx context.Context, pairs []features.Pair, scorer scoring.Scorer, topN int) ([]model.ScoredCandidate, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopN, topN)
	}
	if len(pairs) == 0 {
		return []model.ScoredCandidate{}, nil
	}

	probs, err := scorer.PredictProbability(ctx, features.Rows(pairs))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScoring, scorer.Name(), err)
	}
	if len(probs) != len(pairs) {
		return nil, fmt.Errorf("%w: %s returned %d scores for %d rows", ErrScoring, scorer.Name(), len(probs), len(pairs))
	}

	scored := make([]model.ScoredCandidate, len(pairs))
	for i, p := range pairs {
		if math.IsNaN(probs[i]) || probs[i] < 0 || probs[i] > 1 {
			return nil, fmt.Errorf("%w: %s returned %v for row %d", ErrScoring, scorer.Name(), probs[i], i)
		}
		scored[i] = model.ScoredCandidate{CoachCandidate: p.Candidate, Score: probs[i]}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topN < len(scored) {
		scored = scored[:topN]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored, nil
}

// TopExperiences returns the skill tags of the best candidate. ok is false
// when there is no candidate.
func TopExperiences(scored []model.ScoredCandidate) (tags []string, ok bool) {
	if len(scored) == 0 {
		return nil, false
	}
	return strings.Split(scored[0].Experiences, model.SkillSeparator), true
}
