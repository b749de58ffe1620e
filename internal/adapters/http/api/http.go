// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/okian/coachfit/internal/domain/features"
	"github.com/okian/coachfit/internal/domain/model"
	"github.com/okian/coachfit/internal/domain/types"
	"github.com/okian/coachfit/pkg/logger"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Recommend(ctx context.Context, trainee model.TraineeProfile, topN int) ([]model.ScoredCandidate, error)
	RecommendExperiences(ctx context.Context, trainee model.TraineeProfile) ([]string, error)
	RecommendBatch(ctx context.Context, trainees []model.TraineeProfile) ([][]string, error)
	Coaches(ctx context.Context, limit int) ([]model.CoachCandidate, error)
	SchemaInfo() types.SchemaInfo
}

// Limits bounds the query and body sizes the handlers accept.
type Limits struct {
	DefaultTopN      int
	MaxTopN          int
	MaxBatchSize     int
	MaxRosterListing int

	// RateLimit is the sustained recommendation requests per second; zero
	// disables shedding. RateBurst is the bucket size.
	RateLimit float64
	RateBurst int
}

// DefaultLimits mirrors the configuration defaults.
func DefaultLimits() Limits {
	return Limits{DefaultTopN: 1, MaxTopN: 50, MaxBatchSize: 100, MaxRosterListing: 100}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	recommendHandler *RecommendHandler
	coachesHandler   *CoachesHandler
	limiter          *rate.Limiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, limits Limits) *Server {
	def := DefaultLimits()
	if limits.DefaultTopN <= 0 {
		limits.DefaultTopN = def.DefaultTopN
	}
	if limits.MaxTopN <= 0 {
		limits.MaxTopN = def.MaxTopN
	}
	if limits.MaxBatchSize <= 0 {
		limits.MaxBatchSize = def.MaxBatchSize
	}
	if limits.MaxRosterListing <= 0 {
		limits.MaxRosterListing = def.MaxRosterListing
	}
	var limiter *rate.Limiter
	if limits.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(limits.RateLimit), max(limits.RateBurst, 1))
	}
	return &Server{
		limiter:          limiter,
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		recommendHandler: NewRecommendHandler(deps, limits),
		coachesHandler:   NewCoachesHandler(deps, limits),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/recommend/coaches/ranked", wrap(RateLimitMiddleware(s.recommendHandler.HandleRanked, s.limiter), "recommend_ranked"))
	mux.HandleFunc("/recommend/coaches/batch", wrap(RateLimitMiddleware(s.recommendHandler.HandleBatch, s.limiter), "recommend_batch"))
	mux.HandleFunc("/recommend/coaches", wrap(RateLimitMiddleware(s.recommendHandler.HandleRecommend, s.limiter), "recommend"))
	mux.HandleFunc("/coaches", wrap(s.coachesHandler.HandleList, "coaches"))
	mux.HandleFunc("/schema", wrap(s.coachesHandler.HandleSchema, "schema"))
	mux.HandleFunc("/stats", wrap(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleHealth)
}

func wrap(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return RequestIDMiddleware(MetricsMiddleware(next, endpoint))
}

// decodeBody reads a JSON body into v. Any decode failure maps to a
// bad request; a type mismatch on a known field is invalid input.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w: field %s: %w", ErrInvalidInput, typeErr.Field, err)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// parseLimit reads ?limit=, falling back to def and rejecting values above max.
func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidInput)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("%w: limit %d exceeds maximum %d", ErrLimitExceeded, n, maxLimit)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: code})
}

// writeFailure maps err to a status and error code. Client-caused failures
// carry their message; anything else is reported as an opaque 500.
func writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingField):
		writeError(w, http.StatusBadRequest, "missing_field", ErrMissingField)
	case errors.Is(err, ErrLimitExceeded):
		writeError(w, http.StatusBadRequest, "limit_exceeded", err)
	case errors.Is(err, ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, "batch_too_large", err)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, features.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		logger.Get().Named("api").Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
