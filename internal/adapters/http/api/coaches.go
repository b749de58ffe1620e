package api

import (
	"net/http"

	"github.com/okian/coachfit/internal/domain/types"
)

// CoachesHandler serves roster and schema introspection.
type CoachesHandler struct {
	deps   Dependencies
	limits Limits
}

// NewCoachesHandler creates a new roster handler.
func NewCoachesHandler(deps Dependencies, limits Limits) *CoachesHandler {
	return &CoachesHandler{deps: deps, limits: limits}
}

// HandleList handles GET /coaches?limit=N.
func (h *CoachesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.coaches"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	limit, err := parseLimit(r, h.limits.MaxRosterListing, h.limits.MaxRosterListing)
	if err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}
	coaches, err := h.deps.Coaches(ctx, limit)
	if err != nil {
		writeFailure(ctx, w, Wrap(op, err))
		return
	}
	out := make([]types.CoachRecord, len(coaches))
	for i, c := range coaches {
		out[i] = types.NewCoachRecord(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSchema handles GET /schema.
func (h *CoachesHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.SchemaInfo())
}
