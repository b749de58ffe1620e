// Package loadcheck drives a running coachfit instance with generated
// trainees and checks that every answer is well formed and consistent.
package loadcheck

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrVerification = errors.New("verification failed")
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumTrainees int           // Number of trainees to generate
	TopN        int           // Limit sent to the ranked endpoint
	BatchSize   int           // Trainees per batch request, 0 disables batches
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for generated trainees
	Verbose     bool          // Enable verbose logging

	// Optional roster seeding into Redis before the run.
	SeedCSV   string
	RedisAddr string
	RedisKey  string
}

// Trainee is one generated request body.
type Trainee struct {
	ID         string  `json:"-"`
	Age        int     `json:"age"`
	Height     float64 `json:"height"`
	Weight     float64 `json:"weight"`
	BodyFat    float64 `json:"body_fat"`
	BodyMuscle float64 `json:"body_muscle"`
	Goals      string  `json:"goals"`
}

// Result pairs a trainee with what the service answered.
type Result struct {
	Trainee Trainee
	Tags    []string
	Ranked  []RankedCoach
}

// RankedCoach mirrors one entry of the ranked endpoint.
type RankedCoach struct {
	Rank             int     `json:"rank"`
	CoachID          string  `json:"coach_id"`
	CoachExperiences string  `json:"coach_experiences"`
	PredictedScore   float64 `json:"predicted_score"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int64
	Successful  int64
	Failed      int64
	Batches     int
	Verified    int
	Mismatches  int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	MaxLatency  time.Duration
	MeanLatency time.Duration
}
