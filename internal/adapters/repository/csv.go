package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/coachfit/internal/domain/model"
)

// Roster CSV columns. Other columns in the file are ignored.
const (
	colCoachID          = "coach_id"
	colCoachName        = "coach_name"
	colCoachRating      = "coach_rating"
	colCoachExperiences = "coach_experiences"
)

// CSVLoader reads a roster from a CSV file with a header row.
type CSVLoader struct {
	path string
}

// NewCSVLoader creates a loader for path.
func NewCSVLoader(path string) *CSVLoader {
	return &CSVLoader{path: path}
}

func (l *CSVLoader) Name() string { return "csv" }

// Load opens the file and parses it.
func (l *CSVLoader) Load(ctx context.Context) ([]model.CoachCandidate, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseCSV(ctx, f)
}

// ParseCSV projects rows onto the four roster columns.
func ParseCSV(ctx context.Context, r io.Reader) ([]model.CoachCandidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedRoster)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedRoster, err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, want := range []string{colCoachID, colCoachName, colCoachRating, colCoachExperiences} {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedRoster, want)
		}
	}

	var out []model.CoachCandidate
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRoster, line, err)
		}

		field := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return rec[i]
			}
			return ""
		}

		c := model.CoachCandidate{
			ID:          field(colCoachID),
			Name:        field(colCoachName),
			Experiences: field(colCoachExperiences),
		}
		if raw := strings.TrimSpace(field(colCoachRating)); raw != "" {
			c.Rating, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: coach_rating %q", ErrMalformedRoster, line, raw)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
