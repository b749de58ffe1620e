package api

import (
	"fmt"
	"net/http"

	"github.com/okian/coachfit/internal/domain/model"
	"github.com/okian/coachfit/internal/domain/types"
	"github.com/okian/coachfit/pkg/metrics"
)

// RecommendHandler serves the recommendation endpoints.
type RecommendHandler struct {
	deps   Dependencies
	limits Limits
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(deps Dependencies, limits Limits) *RecommendHandler {
	return &RecommendHandler{deps: deps, limits: limits}
}

// HandleRecommend handles POST /recommend/coaches.
func (h *RecommendHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	trainee, err := readTrainee(r)
	if err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}
	tags, err := h.deps.RecommendExperiences(ctx, trainee)
	if err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}
	metrics.RecordRecommendation("single")
	writeJSON(w, http.StatusOK, types.RecommendationResponse{RecommendedExperiences: tags})
}

// HandleRanked handles POST /recommend/coaches/ranked?limit=N.
func (h *RecommendHandler) HandleRanked(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend_ranked"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	limit, err := parseLimit(r, h.limits.DefaultTopN, h.limits.MaxTopN)
	if err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}
	trainee, err := readTrainee(r)
	if err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}
	scored, err := h.deps.Recommend(ctx, trainee, limit)
	if err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}

	out := make([]types.RankedCoach, len(scored))
	for i, sc := range scored {
		out[i] = types.NewRankedCoach(sc)
	}
	metrics.RecordRecommendation("ranked")
	writeJSON(w, http.StatusOK, out)
}

// HandleBatch handles POST /recommend/coaches/batch.
func (h *RecommendHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var req types.BatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}
	if len(req.Trainees) > h.limits.MaxBatchSize {
		writeFailure(ctx, w, WrapKind(op, ErrBatchTooLarge,
			fmt.Errorf("%d trainees exceeds maximum %d", len(req.Trainees), h.limits.MaxBatchSize)))
		return
	}
	if err := validateRequest(req); err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}

	profiles := make([]model.TraineeProfile, len(req.Trainees))
	for i, t := range req.Trainees {
		profiles[i] = t.Profile()
	}
	results, err := h.deps.RecommendBatch(ctx, profiles)
	if err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}

	resp := types.BatchResponse{Results: make([]types.RecommendationResponse, len(results))}
	for i, tags := range results {
		resp.Results[i] = types.RecommendationResponse{RecommendedExperiences: tags}
	}
	metrics.RecordRecommendation("batch")
	writeJSON(w, http.StatusOK, resp)
}

func readTrainee(r *http.Request) (model.TraineeProfile, error) {
	var req types.TraineeRequest
	if err := decodeBody(r, &req); err != nil {
		return model.TraineeProfile{}, err
	}
	if err := validateRequest(req); err != nil {
		return model.TraineeProfile{}, err
	}
	return req.Profile(), nil
}
