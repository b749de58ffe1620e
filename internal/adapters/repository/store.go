// Package repository loads the coach roster and serves it read-only.
package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/coachfit/internal/domain/dedupe"
	"github.com/okian/coachfit/internal/domain/model"
	"github.com/okian/coachfit/pkg/logger"
	"github.com/okian/coachfit/pkg/metrics"
)

// Loader reads raw coach records from a backing source.
type Loader interface {
	Name() string
	Load(ctx context.Context) ([]model.CoachCandidate, error)
}

// Store is an immutable roster snapshot. Duplicate records, equal in every
// field, are dropped keeping the first occurrence.
type Store struct {
	coaches []model.CoachCandidate
	source  string
	dropped int
}

// NewStore loads the roster once through loader.
func NewStore(ctx context.Context, loader Loader, opts ...Option) (*Store, error) {
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("repository")
	}

	start := time.Now()
	raw, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRosterLoad, loader.Name(), err)
	}

	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(raw)))
	coaches := make([]model.CoachCandidate, 0, len(raw))
	for _, c := range raw {
		if seen.SeenAndRecord(ctx, recordKey(c)) {
			continue
		}
		coaches = append(coaches, c)
	}

	s := &Store{coaches: coaches, source: loader.Name(), dropped: len(raw) - len(coaches)}

	elapsed := time.Since(start)
	metrics.RecordRosterLoadDuration(float64(elapsed.Microseconds()) / 1000)
	metrics.RecordRosterDuplicates(s.dropped)
	metrics.UpdateRosterSize(len(coaches))
	o.log.Info(ctx, "roster loaded",
		logger.String("source", s.source),
		logger.Int("coaches", len(coaches)),
		logger.Int("duplicates_dropped", s.dropped),
		logger.Duration("took", elapsed))
	return s, nil
}

// NewStaticStore wraps an in-memory roster, dropping duplicates the same way
// NewStore does.
func NewStaticStore(coaches []model.CoachCandidate) *Store {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(coaches)))
	kept := make([]model.CoachCandidate, 0, len(coaches))
	for _, c := range coaches {
		if !seen.SeenAndRecord(context.Background(), recordKey(c)) {
			kept = append(kept, c)
		}
	}
	return &Store{coaches: kept, source: "static", dropped: len(coaches) - len(kept)}
}

// All returns the roster in load order. The slice is shared and must not be
// modified.
func (s *Store) All() []model.CoachCandidate { return s.coaches }

// List returns a copy of the first limit coaches.
func (s *Store) List(_ context.Context, limit int) ([]model.CoachCandidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit > len(s.coaches) {
		limit = len(s.coaches)
	}
	return append([]model.CoachCandidate(nil), s.coaches[:limit]...), nil
}

// Count returns the number of coaches in the roster.
func (s *Store) Count() int { return len(s.coaches) }

// Source names the loader the roster came from.
func (s *Store) Source() string { return s.source }

// Dropped is the number of duplicate records removed at load.
func (s *Store) Dropped() int { return s.dropped }

func recordKey(c model.CoachCandidate) string {
	return dedupe.Key(c.ID, c.Name, strconv.FormatFloat(c.Rating, 'g', -1, 64), c.Experiences)
}
