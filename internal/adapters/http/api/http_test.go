package api_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/coachfit/internal/adapters/http/api"
	"github.com/okian/coachfit/internal/domain/features"
	"github.com/okian/coachfit/internal/domain/model"
	"github.com/okian/coachfit/internal/domain/types"
	"github.com/okian/coachfit/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const validTrainee = `{
	"age": 28,
	"height": 178,
	"weight": 80,
	"body_fat": 18,
	"body_muscle": 40,
	"goals": "muscle gain|strength"
}`

// mockDependencies records what the handlers pass through.
type mockDependencies struct {
	tags     []string
	scored   []model.ScoredCandidate
	roster   []model.CoachCandidate
	err      error
	trainees []model.TraineeProfile
	topN     int
	limit    int
}

func (m *mockDependencies) Recommend(_ context.Context, t model.TraineeProfile, topN int) ([]model.ScoredCandidate, error) {
	m.trainees = append(m.trainees, t)
	m.topN = topN
	if m.err != nil {
		return nil, m.err
	}
	if topN < len(m.scored) {
		return m.scored[:topN], nil
	}
	return m.scored, nil
}

func (m *mockDependencies) RecommendExperiences(_ context.Context, t model.TraineeProfile) ([]string, error) {
	m.trainees = append(m.trainees, t)
	if m.err != nil {
		return nil, m.err
	}
	return m.tags, nil
}

func (m *mockDependencies) RecommendBatch(_ context.Context, ts []model.TraineeProfile) ([][]string, error) {
	m.trainees = append(m.trainees, ts...)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]string, len(ts))
	for i, t := range ts {
		out[i] = t.GoalTags()
	}
	return out, nil
}

func (m *mockDependencies) Coaches(_ context.Context, limit int) ([]model.CoachCandidate, error) {
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.roster) {
		return m.roster[:limit], nil
	}
	return m.roster, nil
}

func (m *mockDependencies) SchemaInfo() types.SchemaInfo {
	return types.SchemaInfo{
		Model:          "logistic",
		FeatureColumns: []string{"age", "bmi"},
		SkillList:      []string{"yoga"},
	}
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"roster_size": 3}},
		api.Limits{DefaultTopN: 1, MaxTopN: 5, MaxBatchSize: 2, MaxRosterListing: 10})
	mux := http.NewServeMux()
	server.Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) types.ErrorResponse {
	var resp types.ErrorResponse
	So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
	return resp
}

func TestRecommendHandler(t *testing.T) {
	Convey("Given the single recommendation endpoint", t, func() {
		deps := &mockDependencies{tags: []string{"muscle gain", "strength"}}
		mux := newMux(deps)

		Convey("When the trainee is complete", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches", validTrainee)

			Convey("Then the best coach's tags are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

				var resp types.RecommendationResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.RecommendedExperiences, ShouldResemble, []string{"muscle gain", "strength"})
			})

			Convey("And the profile reaches the service unchanged", func() {
				So(deps.trainees, ShouldHaveLength, 1)
				So(deps.trainees[0], ShouldResemble, model.TraineeProfile{
					Age: 28, Height: 178, Weight: 80, BodyFat: 18, BodyMuscle: 40,
					Goals: "muscle gain|strength",
				})
			})
		})

		Convey("When the age is written as a decimal", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches",
				`{"age":28.0,"height":178,"weight":80,"body_fat":18,"body_muscle":40,"goals":"yoga"}`)

			Convey("Then a whole value is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.trainees, ShouldHaveLength, 1)
				So(deps.trainees[0].Age, ShouldEqual, 28)
			})
		})

		Convey("When the age has a fractional part", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches",
				`{"age":28.5,"height":178,"weight":80,"body_fat":18,"body_muscle":40,"goals":"yoga"}`)

			Convey("Then it is invalid input naming the field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				resp := decodeError(w)
				So(resp.Code, ShouldEqual, "invalid_input")
				So(resp.Error, ShouldContainSubstring, "age must be a whole number")
			})
		})

		Convey("When zero values are sent explicitly", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches",
				`{"age":0,"height":170,"weight":0,"body_fat":0,"body_muscle":0,"goals":""}`)

			Convey("Then they are accepted as present", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When a required field is missing", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches",
				`{"age":28,"height":178,"weight":80,"body_fat":18,"body_muscle":40}`)

			Convey("Then a missing field error is returned without calling the service", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				resp := decodeError(w)
				So(resp.Code, ShouldEqual, "missing_field")
				So(resp.Error, ShouldEqual, "Missing one or more required fields.")
				So(deps.trainees, ShouldBeEmpty)
			})
		})

		Convey("When a required field is null", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches",
				`{"age":null,"height":178,"weight":80,"body_fat":18,"body_muscle":40,"goals":"yoga"}`)

			Convey("Then it counts as missing", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "missing_field")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches", `{not json`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When a field has the wrong type", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches",
				`{"age":"old","height":178,"weight":80,"body_fat":18,"body_muscle":40,"goals":"yoga"}`)

			Convey("Then it is invalid input", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "invalid_input")
			})
		})

		Convey("When the service rejects the profile", func() {
			deps.err = fmt.Errorf("height: %w", features.ErrInvalidInput)
			w := do(mux, http.MethodPost, "/recommend/coaches", validTrainee)

			Convey("Then it is reported as invalid input", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "invalid_input")
			})
		})

		Convey("When the service fails internally", func() {
			deps.err = errors.New("scorer exploded")
			w := do(mux, http.MethodPost, "/recommend/coaches", validTrainee)

			Convey("Then an opaque internal error is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				resp := decodeError(w)
				So(resp.Code, ShouldEqual, "internal_error")
				So(resp.Error, ShouldNotContainSubstring, "exploded")
			})
		})

		Convey("When the method is not POST", func() {
			w := do(mux, http.MethodGet, "/recommend/coaches", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestRankedHandler(t *testing.T) {
	Convey("Given the ranked recommendation endpoint", t, func() {
		deps := &mockDependencies{scored: []model.ScoredCandidate{
			{CoachCandidate: model.CoachCandidate{ID: "c1", Name: "Ana", Rating: 4.5, Experiences: "yoga|hiit"}, Score: 0.9, Rank: 1},
			{CoachCandidate: model.CoachCandidate{ID: "c2", Name: "Bo", Rating: 4.1, Experiences: "strength"}, Score: 0.7, Rank: 2},
			{CoachCandidate: model.CoachCandidate{ID: "c3", Name: "Cy", Rating: 3.9, Experiences: "cardio"}, Score: 0.2, Rank: 3},
		}}
		mux := newMux(deps)

		Convey("When no limit is given", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches/ranked", validTrainee)

			Convey("Then the default top N is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.topN, ShouldEqual, 1)

				var resp []types.RankedCoach
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp, ShouldHaveLength, 1)
				So(resp[0], ShouldResemble, types.RankedCoach{
					Rank: 1, CoachID: "c1", CoachName: "Ana", CoachRating: 4.5,
					CoachExperiences: "yoga|hiit", PredictedScore: 0.9,
				})
			})
		})

		Convey("When a limit is given", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches/ranked?limit=3", validTrainee)

			Convey("Then that many candidates are returned in rank order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp []types.RankedCoach
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp, ShouldHaveLength, 3)
				So(resp[2].CoachID, ShouldEqual, "c3")
				So(resp[2].Rank, ShouldEqual, 3)
			})
		})

		Convey("When the limit exceeds the maximum", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches/ranked?limit=6", validTrainee)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "limit_exceeded")
				So(deps.trainees, ShouldBeEmpty)
			})
		})

		Convey("When the limit is not a positive integer", func() {
			for _, raw := range []string{"abc", "0", "-2"} {
				Convey("And limit is "+raw, func() {
					w := do(mux, http.MethodPost, "/recommend/coaches/ranked?limit="+raw, validTrainee)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(decodeError(w).Code, ShouldEqual, "invalid_input")
				})
			}
		})
	})
}

func TestBatchHandler(t *testing.T) {
	Convey("Given the batch recommendation endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When two trainees are submitted", func() {
			body := `{"trainees":[
				{"age":28,"height":178,"weight":80,"body_fat":18,"body_muscle":40,"goals":"yoga"},
				{"age":41,"height":165,"weight":70,"body_fat":25,"body_muscle":30,"goals":"cardio|hiit"}
			]}`
			w := do(mux, http.MethodPost, "/recommend/coaches/batch", body)

			Convey("Then results come back in request order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.BatchResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Results, ShouldHaveLength, 2)
				So(resp.Results[0].RecommendedExperiences, ShouldResemble, []string{"yoga"})
				So(resp.Results[1].RecommendedExperiences, ShouldResemble, []string{"cardio", "hiit"})
			})
		})

		Convey("When one trainee misses a field", func() {
			body := `{"trainees":[
				{"age":28,"height":178,"weight":80,"body_fat":18,"body_muscle":40,"goals":"yoga"},
				{"age":41,"height":165,"weight":70,"body_fat":25,"body_muscle":30}
			]}`
			w := do(mux, http.MethodPost, "/recommend/coaches/batch", body)

			Convey("Then the whole batch is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "missing_field")
				So(deps.trainees, ShouldBeEmpty)
			})
		})

		Convey("When the batch is larger than allowed", func() {
			one := `{"age":28,"height":178,"weight":80,"body_fat":18,"body_muscle":40,"goals":"yoga"}`
			w := do(mux, http.MethodPost, "/recommend/coaches/batch", `{"trainees":[`+one+`,`+one+`,`+one+`]}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "batch_too_large")
			})
		})

		Convey("When the batch is empty", func() {
			w := do(mux, http.MethodPost, "/recommend/coaches/batch", `{"trainees":[]}`)

			Convey("Then it is a client error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service fails", func() {
			deps.err = errors.New("boom")
			w := do(mux, http.MethodPost, "/recommend/coaches/batch",
				`{"trainees":[{"age":28,"height":178,"weight":80,"body_fat":18,"body_muscle":40,"goals":"yoga"}]}`)

			Convey("Then no partial results are returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "results")
			})
		})
	})
}

func TestCoachesHandler(t *testing.T) {
	Convey("Given the roster endpoints", t, func() {
		deps := &mockDependencies{roster: []model.CoachCandidate{
			{ID: "c1", Name: "Ana", Rating: 4.5, Experiences: "yoga"},
			{ID: "c2", Name: "Bo", Rating: 4.1, Experiences: "strength"},
			{ID: "c3", Name: "Cy", Rating: 3.9, Experiences: "cardio"},
		}}
		mux := newMux(deps)

		Convey("When listing without a limit", func() {
			w := do(mux, http.MethodGet, "/coaches", "")

			Convey("Then the listing cap is applied", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.limit, ShouldEqual, 10)
				var resp []types.CoachRecord
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp, ShouldHaveLength, 3)
				So(resp[1], ShouldResemble, types.CoachRecord{
					CoachID: "c2", CoachName: "Bo", CoachRating: 4.1, CoachExperiences: "strength",
				})
			})
		})

		Convey("When listing with a limit", func() {
			w := do(mux, http.MethodGet, "/coaches?limit=2", "")

			Convey("Then only that many are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp []types.CoachRecord
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp, ShouldHaveLength, 2)
			})
		})

		Convey("When the limit is above the cap", func() {
			w := do(mux, http.MethodGet, "/coaches?limit=11", "")

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When the schema is requested", func() {
			w := do(mux, http.MethodGet, "/schema", "")

			Convey("Then the artifact description is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.SchemaInfo
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Model, ShouldEqual, "logistic")
				So(resp.FeatureColumns, ShouldResemble, []string{"age", "bmi"})
				So(resp.SkillList, ShouldResemble, []string{"yoga"})
			})
		})

		Convey("When posting to the listing", func() {
			w := do(mux, http.MethodPost, "/coaches", "{}")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then health and metrics answer with the exposition format", func() {
			for _, path := range []string{"/healthz", "/metrics"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
			}
		})

		Convey("Then stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp map[string]interface{}
			So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
			So(resp["roster_size"], ShouldEqual, 3.0)
			So(resp["go_version"], ShouldStartWith, "go")
		})

		Convey("Then unknown paths are not found", func() {
			w := do(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a server limited to a burst of two", t, func() {
		server := api.NewServer(&mockDependencies{tags: []string{"yoga"}}, &mockStatsProvider{},
			api.Limits{RateLimit: 0.001, RateBurst: 2})
		mux := http.NewServeMux()
		server.Register(mux)

		Convey("When a third recommendation arrives at once", func() {
			codes := make([]int, 0, 3)
			var last *httptest.ResponseRecorder
			for range 3 {
				last = do(mux, http.MethodPost, "/recommend/coaches", validTrainee)
				codes = append(codes, last.Code)
			}

			Convey("Then it is shed with backpressure", func() {
				So(codes, ShouldResemble, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests})
				So(last.Header().Get("Retry-After"), ShouldEqual, "1")
				So(decodeError(last).Code, ShouldEqual, "backpressure")
			})
		})

		Convey("Then non-recommendation routes are not limited", func() {
			for range 5 {
				So(do(mux, http.MethodGet, "/schema", "").Code, ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given a handler behind the request id middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
		})

		Convey("When the caller sends an id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h(w, req)

			Convey("Then it is echoed and put on the context", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
				So(seen, ShouldEqual, "abc-123")
			})
		})

		Convey("When the caller sends none", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			w := httptest.NewRecorder()
			h(w, req)

			Convey("Then a uuid is minted", func() {
				id := w.Header().Get(api.RequestIDHeader)
				So(id, ShouldHaveLength, 36)
				So(seen, ShouldEqual, id)
			})
		})
	})
}
