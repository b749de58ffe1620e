package loadcheck

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/coachfit/internal/adapters/repository"
	"github.com/okian/coachfit/internal/domain/model"
)

// VerifyResult checks one trainee's answers: the ranked list is ordered,
// densely ranked from 1, bounded by topN, carries probabilities, and its
// head matches the single recommendation.
func VerifyResult(r Result, topN int) error {
	if len(r.Ranked) == 0 {
		return fmt.Errorf("%w: empty ranking", ErrVerification)
	}
	if len(r.Ranked) > topN {
		return fmt.Errorf("%w: %d ranked coaches for limit %d", ErrVerification, len(r.Ranked), topN)
	}
	for i, c := range r.Ranked {
		if c.Rank != i+1 {
			return fmt.Errorf("%w: position %d has rank %d", ErrVerification, i, c.Rank)
		}
		if c.PredictedScore < 0 || c.PredictedScore > 1 {
			return fmt.Errorf("%w: score %v outside [0,1]", ErrVerification, c.PredictedScore)
		}
		if i > 0 && c.PredictedScore > r.Ranked[i-1].PredictedScore {
			return fmt.Errorf("%w: rank %d outscores rank %d", ErrVerification, c.Rank, c.Rank-1)
		}
	}

	want := strings.Split(r.Ranked[0].CoachExperiences, model.SkillSeparator)
	if !slices.Equal(want, r.Tags) {
		return fmt.Errorf("%w: single answer %v differs from top ranked %v", ErrVerification, r.Tags, want)
	}
	return nil
}

// CompareBatch counts trainees whose batch answer differs from their
// single answer. A short batch response counts every missing slot.
func CompareBatch(single []*Result, batch []recommendation) int {
	mismatches := 0
	for i, r := range single {
		if i >= len(batch) || !slices.Equal(r.Tags, batch[i].RecommendedExperiences) {
			mismatches++
		}
	}
	return mismatches
}

// RosterSaver persists a roster.
type RosterSaver interface {
	Save(ctx context.Context, coaches []model.CoachCandidate) error
}

// SeedRoster loads a roster CSV, drops duplicate rows and hands the rest
// to saver.
func SeedRoster(ctx context.Context, csvPath string, saver RosterSaver) (int, error) {
	store, err := repository.NewStore(ctx, repository.NewCSVLoader(csvPath))
	if err != nil {
		return 0, err
	}
	if err := saver.Save(ctx, store.All()); err != nil {
		return 0, err
	}
	return store.Count(), nil
}
