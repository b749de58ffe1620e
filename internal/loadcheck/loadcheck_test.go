package loadcheck

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/coachfit/internal/domain/model"
	"github.com/okian/coachfit/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestGenerateTrainees(t *testing.T) {
	Convey("Given generated trainees", t, func() {
		trainees := GenerateTrainees(200)

		Convey("Then every profile is plausible and uniquely identified", func() {
			So(trainees, ShouldHaveLength, 200)
			ids := make(map[string]bool, len(trainees))
			for _, tr := range trainees {
				So(ids[tr.ID], ShouldBeFalse)
				ids[tr.ID] = true

				So(tr.Age, ShouldBeBetweenOrEqual, minAge, minAge+ageSpan)
				So(tr.Height, ShouldBeBetweenOrEqual, minHeight, minHeight+heightSpan)
				m := tr.Height / centimetresPerMetre
				So(tr.Weight/(m*m), ShouldBeBetweenOrEqual, minBMI-1, minBMI+bmiSpan+1)

				goals := strings.Split(tr.Goals, model.SkillSeparator)
				So(len(goals), ShouldBeBetweenOrEqual, 1, maxGoals)
				for _, g := range goals {
					So(goalPool, ShouldContain, g)
				}
			}
		})
	})
}

func TestVerifyResult(t *testing.T) {
	Convey("Given a ranked answer", t, func() {
		ranked := []RankedCoach{
			{Rank: 1, CoachID: "c1", CoachExperiences: "yoga|flexibility", PredictedScore: 0.8},
			{Rank: 2, CoachID: "c2", CoachExperiences: "cardio", PredictedScore: 0.4},
		}

		Convey("When it agrees with the single answer", func() {
			r := Result{Tags: []string{"yoga", "flexibility"}, Ranked: ranked}
			So(VerifyResult(r, 5), ShouldBeNil)
		})

		Convey("When the single answer differs", func() {
			r := Result{Tags: []string{"cardio"}, Ranked: ranked}
			So(errors.Is(VerifyResult(r, 5), ErrVerification), ShouldBeTrue)
		})

		Convey("When scores increase down the list", func() {
			bad := append([]RankedCoach(nil), ranked...)
			bad[1].PredictedScore = 0.9
			r := Result{Tags: []string{"yoga", "flexibility"}, Ranked: bad}
			So(errors.Is(VerifyResult(r, 5), ErrVerification), ShouldBeTrue)
		})

		Convey("When ranks are not dense", func() {
			bad := append([]RankedCoach(nil), ranked...)
			bad[1].Rank = 3
			r := Result{Tags: []string{"yoga", "flexibility"}, Ranked: bad}
			So(errors.Is(VerifyResult(r, 5), ErrVerification), ShouldBeTrue)
		})

		Convey("When more coaches than the limit come back", func() {
			r := Result{Tags: []string{"yoga", "flexibility"}, Ranked: ranked}
			So(errors.Is(VerifyResult(r, 1), ErrVerification), ShouldBeTrue)
		})
	})
}

func TestCompareBatch(t *testing.T) {
	Convey("Given single answers", t, func() {
		single := []*Result{{Tags: []string{"yoga"}}, {Tags: []string{"cardio", "hiit"}}}

		Convey("Then an identical batch has no mismatches", func() {
			batch := []recommendation{
				{RecommendedExperiences: []string{"yoga"}},
				{RecommendedExperiences: []string{"cardio", "hiit"}},
			}
			So(CompareBatch(single, batch), ShouldEqual, 0)
		})

		Convey("Then differing and missing slots are counted", func() {
			batch := []recommendation{{RecommendedExperiences: []string{"strength"}}}
			So(CompareBatch(single, batch), ShouldEqual, 2)
		})
	})
}

type fakeSaver struct {
	saved []model.CoachCandidate
	err   error
}

func (f *fakeSaver) Save(_ context.Context, coaches []model.CoachCandidate) error {
	f.saved = coaches
	return f.err
}

func TestSeedRoster(t *testing.T) {
	Convey("Given the bundled roster CSV", t, func() {
		ctx := context.Background()
		path := filepath.Join("..", "..", "testdata", "coach_suitability.csv")

		Convey("When seeding succeeds", func() {
			saver := &fakeSaver{}
			n, err := SeedRoster(ctx, path, saver)

			Convey("Then duplicate rows are dropped before saving", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 6)
				So(saver.saved, ShouldHaveLength, 6)
			})
		})

		Convey("When the saver fails", func() {
			_, err := SeedRoster(ctx, path, &fakeSaver{err: errors.New("redis down")})
			So(err, ShouldNotBeNil)
		})
	})
}

// fakeService answers like a consistent coachfit instance. When skew is set,
// the single endpoint disagrees with the ranked one.
func fakeService(skew bool) *httptest.Server {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {})
	mux.HandleFunc("/schema", func(w http.ResponseWriter, _ *http.Request) {
		write(w, schemaInfo{Model: "logistic", SkillList: []string{"yoga", "cardio"}})
	})
	mux.HandleFunc("/recommend/coaches", func(w http.ResponseWriter, _ *http.Request) {
		tags := []string{"yoga", "flexibility"}
		if skew {
			tags = []string{"cardio"}
		}
		write(w, recommendation{RecommendedExperiences: tags})
	})
	mux.HandleFunc("/recommend/coaches/ranked", func(w http.ResponseWriter, _ *http.Request) {
		write(w, []RankedCoach{
			{Rank: 1, CoachID: "c1", CoachExperiences: "yoga|flexibility", PredictedScore: 0.7},
			{Rank: 2, CoachID: "c2", CoachExperiences: "cardio", PredictedScore: 0.3},
		})
	})
	mux.HandleFunc("/recommend/coaches/batch", func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := batchResponse{Results: make([]recommendation, len(req.Trainees))}
		for i := range resp.Results {
			resp.Results[i] = recommendation{RecommendedExperiences: []string{"yoga", "flexibility"}}
		}
		write(w, resp)
	})
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a consistent service", t, func() {
		srv := fakeService(false)
		defer srv.Close()
		out := filepath.Join(t.TempDir(), "trainees.json")

		cfg := &Config{
			BaseURL:     srv.URL,
			NumTrainees: 25,
			TopN:        2,
			BatchSize:   10,
			Workers:     4,
			Timeout:     5 * time.Second,
			OutputFile:  out,
		}
		stats, err := Run(context.Background(), cfg)

		Convey("Then every trainee is answered and verified", func() {
			So(err, ShouldBeNil)
			So(stats.Generated, ShouldEqual, 25)
			So(stats.Successful, ShouldEqual, int64(25))
			So(stats.Failed, ShouldEqual, int64(0))
			So(stats.Verified, ShouldEqual, 25)
			So(stats.Batches, ShouldEqual, 3)
			So(stats.Mismatches, ShouldEqual, 0)
		})

		Convey("And the trainees are written out", func() {
			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			var saved []Trainee
			So(json.Unmarshal(data, &saved), ShouldBeNil)
			So(saved, ShouldHaveLength, 25)
		})
	})

	Convey("Given a service whose endpoints disagree", t, func() {
		srv := fakeService(true)
		defer srv.Close()

		cfg := &Config{BaseURL: srv.URL, NumTrainees: 5, TopN: 2, Workers: 2, Timeout: 5 * time.Second}
		stats, err := Run(context.Background(), cfg)

		Convey("Then the run fails verification", func() {
			So(errors.Is(err, ErrVerification), ShouldBeTrue)
			So(stats.Mismatches, ShouldEqual, 5)
		})
	})

	Convey("Given no service", t, func() {
		srv := fakeService(false)
		srv.Close()

		cfg := &Config{BaseURL: srv.URL, NumTrainees: 1, TopN: 1, Workers: 1, Timeout: time.Second}
		_, err := Run(context.Background(), cfg)

		Convey("Then the health check fails", func() {
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})
	})
}
