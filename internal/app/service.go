// Package service provides the recommendation service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/coachfit/internal/domain/features"
	"github.com/okian/coachfit/internal/domain/model"
	"github.com/okian/coachfit/internal/domain/ranking"
	"github.com/okian/coachfit/internal/domain/schema"
	"github.com/okian/coachfit/internal/domain/scoring"
	"github.com/okian/coachfit/internal/domain/types"
	"github.com/okian/coachfit/pkg/logger"
	"github.com/okian/coachfit/pkg/metrics"
)

// Roster is the read-only coach pool.
type Roster interface {
	All() []model.CoachCandidate
	List(ctx context.Context, limit int) ([]model.CoachCandidate, error)
	Count() int
}

// Service holds the immutable recommendation context: trained schema, scorer
// and roster. It is safe for concurrent use; each request builds its own rows.
type Service struct {
	schema *schema.TrainedSchema
	scorer scoring.Scorer
	roster Roster

	batchConcurrency int
	logger           logger.Logger
	startedAt        time.Time

	recommendations atomic.Int64
	failures        atomic.Int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBatchConcurrency bounds how many trainees of one batch run at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over an already loaded schema and roster.
func New(sch *schema.TrainedSchema, roster Roster, opts ...Option) (*Service, error) {
	if sch == nil || roster == nil {
		return nil, ErrNotReady
	}
	s := &Service{
		schema:           sch,
		scorer:           sch.Scorer(),
		roster:           roster,
		batchConcurrency: runtime.NumCPU(),
		startedAt:        time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	metrics.UpdateFeatureColumns(sch.NumColumns())
	return s, nil
}

// Recommend ranks the whole roster for trainee and returns the best topN.
func (s *Service) Recommend(ctx context.Context, trainee model.TraineeProfile, topN int) ([]model.ScoredCandidate, error) {
	scored, err := s.recommend(ctx, trainee, topN)
	if err != nil {
		s.failures.Add(1)
		metrics.RecordRecommendationError(errorKind(err))
		return nil, err
	}
	s.recommendations.Add(1)
	return scored, nil
}

// RecommendExperiences returns the skill tags of the single best coach.
func (s *Service) RecommendExperiences(ctx context.Context, trainee model.TraineeProfile) ([]string, error) {
	scored, err := s.Recommend(ctx, trainee, 1)
	if err != nil {
		return nil, err
	}
	tags, ok := ranking.TopExperiences(scored)
	if !ok {
		return nil, ErrNoCandidates
	}
	return tags, nil
}

// RecommendBatch recommends for every trainee concurrently. Any failure fails
// the whole batch; results are in input order.
func (s *Service) RecommendBatch(ctx context.Context, trainees []model.TraineeProfile) ([][]string, error) {
	if len(trainees) == 0 {
		return nil, ErrEmptyBatch
	}

	results := make([][]string, len(trainees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, t := range trainees {
		g.Go(func() error {
			tags, err := s.RecommendExperiences(gctx, t)
			if err != nil {
				return fmt.Errorf("trainee %d: %w", i, err)
			}
			results[i] = tags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) recommend(ctx context.Context, trainee model.TraineeProfile, topN int) ([]model.ScoredCandidate, error) {
	coaches := s.roster.All()
	if len(coaches) == 0 {
		return nil, ErrNoCandidates
	}

	start := time.Now()
	pairs, err := features.Build(trainee, coaches, s.schema)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeatureBuildLatency(msSince(start))

	start = time.Now()
	scored, err := ranking.Rank(ctx, pairs, s.scorer, topN)
	if err != nil {
		s.logger.Error(ctx, "ranking failed",
			logger.String("scorer", s.scorer.Name()),
			logger.Int("candidates", len(pairs)),
			logger.Error(err))
		return nil, err
	}
	metrics.RecordScoringLatency(msSince(start))
	metrics.RecordCandidatesScored(len(pairs))
	for _, sc := range scored {
		metrics.RecordPredictedScore(sc.Score)
	}

	s.logger.Debug(ctx, "recommendation ranked",
		logger.Int("candidates", len(pairs)),
		logger.Int("returned", len(scored)),
		logger.Float64("top_score", scored[0].Score))
	return scored, nil
}

// Coaches lists the first limit roster entries.
func (s *Service) Coaches(ctx context.Context, limit int) ([]model.CoachCandidate, error) {
	return s.roster.List(ctx, limit)
}

// SchemaInfo describes the loaded artifact.
func (s *Service) SchemaInfo() types.SchemaInfo {
	return types.SchemaInfo{
		Model:          s.schema.ModelType(),
		FeatureColumns: s.schema.FeatureColumns(),
		SkillList:      s.schema.SkillList(),
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"model":                   s.schema.ModelType(),
		"feature_columns":         s.schema.NumColumns(),
		"skills":                  len(s.schema.SkillList()),
		"roster_size":             s.roster.Count(),
		"batch_concurrency":       s.batchConcurrency,
		"recommendations_total":   s.recommendations.Load(),
		"recommendation_failures": s.failures.Load(),
		"uptime_seconds":          int64(time.Since(s.startedAt).Seconds()),
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, features.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ranking.ErrScoring):
		return "scoring"
	case errors.Is(err, ranking.ErrInvalidTopN):
		return "invalid_top_n"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
