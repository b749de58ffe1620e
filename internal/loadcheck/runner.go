package loadcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/okian/coachfit/internal/adapters/repository"
	"github.com/okian/coachfit/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

const percentageMultiplier = 100

type schemaInfo struct {
	Model     string   `json:"model"`
	SkillList []string `json:"skill_list"`
}

type recommendation struct {
	RecommendedExperiences []string `json:"recommended_experiences"`
}

type batchRequest struct {
	Trainees []Trainee `json:"trainees"`
}

type batchResponse struct {
	Results []recommendation `json:"results"`
}

// Run executes a complete load check and returns its statistics. Individual
// request failures are counted, not fatal; inconsistent answers fail the run.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadcheck")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting coachfit load check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("trainees", cfg.NumTrainees),
		logger.Int("workers", cfg.Workers),
		logger.Int("topN", cfg.TopN),
		logger.Int("batchSize", cfg.BatchSize),
		logger.Duration("timeout", cfg.Timeout))

	if cfg.SeedCSV != "" {
		if err := seedRedis(ctx, cfg); err != nil {
			return nil, fmt.Errorf("roster seeding failed: %w", err)
		}
	}

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	var info schemaInfo
	if err := client.getJSON(ctx, "/schema", &info); err != nil {
		return nil, fmt.Errorf("schema lookup failed: %w", err)
	}
	log.Info(ctx, "service is healthy",
		logger.String("model", info.Model),
		logger.Int("skills", len(info.SkillList)))

	trainees := GenerateTrainees(cfg.NumTrainees)
	stats.Generated = len(trainees)

	results := submitTrainees(ctx, client, cfg, trainees, stats)

	for _, r := range results {
		if r == nil {
			continue
		}
		if err := VerifyResult(*r, cfg.TopN); err != nil {
			log.Error(ctx, "inconsistent recommendation",
				logger.String("trainee", r.Trainee.ID), logger.Error(err))
			stats.Mismatches++
			continue
		}
		stats.Verified++
	}

	if cfg.BatchSize > 0 {
		n, err := checkBatches(ctx, client, cfg.BatchSize, results)
		if err != nil {
			return stats, fmt.Errorf("batch check failed: %w", err)
		}
		stats.Batches = n.batches
		stats.Mismatches += n.mismatches
	}

	if cfg.OutputFile != "" {
		if err := saveTrainees(cfg.OutputFile, trainees); err != nil {
			log.Warn(ctx, "failed to save trainees to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if stats.Mismatches > 0 {
		return stats, fmt.Errorf("%w: %d inconsistent answers", ErrVerification, stats.Mismatches)
	}
	log.Info(ctx, "load check completed successfully")
	return stats, nil
}

// submitTrainees sends every trainee to the single and ranked endpoints.
// The slot of a failed trainee stays nil.
func submitTrainees(ctx context.Context, client *HTTPClient, cfg *Config, trainees []Trainee, stats *Stats) []*Result {
	log := logger.Get().Named("loadcheck")
	results := make([]*Result, len(trainees))
	rankedPath := "/recommend/coaches/ranked?limit=" + strconv.Itoa(cfg.TopN)

	var (
		mu           sync.Mutex
		totalLatency time.Duration
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, t := range trainees {
		g.Go(func() error {
			start := time.Now()
			atomic.AddInt64(&stats.Submitted, 1)

			var rec recommendation
			var ranked []RankedCoach
			err := client.postJSON(gctx, "/recommend/coaches", t.ID, t, &rec)
			if err == nil {
				err = client.postJSON(gctx, rankedPath, t.ID, t, &ranked)
			}
			elapsed := time.Since(start)

			mu.Lock()
			totalLatency += elapsed
			if elapsed > stats.MaxLatency {
				stats.MaxLatency = elapsed
			}
			mu.Unlock()

			if err != nil {
				atomic.AddInt64(&stats.Failed, 1)
				if cfg.Verbose {
					log.Warn(gctx, "request failed", logger.String("trainee", t.ID), logger.Error(err))
				}
				return nil
			}
			atomic.AddInt64(&stats.Successful, 1)
			results[i] = &Result{Trainee: t, Tags: rec.RecommendedExperiences, Ranked: ranked}
			return nil
		})
	}
	_ = g.Wait()

	if stats.Submitted > 0 {
		stats.MeanLatency = totalLatency / time.Duration(stats.Submitted)
	}
	return results
}

type batchOutcome struct {
	batches    int
	mismatches int
}

// checkBatches resubmits answered trainees in batches and compares each
// batch answer to the single answer for the same trainee.
func checkBatches(ctx context.Context, client *HTTPClient, size int, results []*Result) (batchOutcome, error) {
	var out batchOutcome
	answered := make([]*Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			answered = append(answered, r)
		}
	}

	for start := 0; start < len(answered); start += size {
		chunk := answered[start:min(start+size, len(answered))]
		req := batchRequest{Trainees: make([]Trainee, len(chunk))}
		for i, r := range chunk {
			req.Trainees[i] = r.Trainee
		}

		var resp batchResponse
		if err := client.postJSON(ctx, "/recommend/coaches/batch", "", req, &resp); err != nil {
			return out, err
		}
		out.batches++
		out.mismatches += CompareBatch(chunk, resp.Results)
	}
	return out, nil
}

// seedRedis writes the CSV roster into the configured Redis hash.
func seedRedis(ctx context.Context, cfg *Config) error {
	loader, err := repository.NewRedisLoader(ctx, cfg.RedisAddr, "", 0, cfg.RedisKey)
	if err != nil {
		return err
	}
	defer func() { _ = loader.Close() }()

	n, err := SeedRoster(ctx, cfg.SeedCSV, loader)
	if err != nil {
		return err
	}
	logger.Get().Named("loadcheck").Info(ctx, "roster seeded",
		logger.String("key", cfg.RedisKey), logger.Int("coaches", n))
	return nil
}

// saveTrainees writes the generated trainees as a JSON array.
func saveTrainees(filename string, trainees []Trainee) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(trainees, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trainees: %w", err)
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", int(stats.Submitted)),
		logger.Int("successful", int(stats.Successful)),
		logger.Int("failed", int(stats.Failed)),
		logger.Int("verified", stats.Verified),
		logger.Int("batches", stats.Batches),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Duration("meanLatency", stats.MeanLatency),
		logger.Duration("maxLatency", stats.MaxLatency),
		logger.Float64("successRate", successRate),
		logger.Float64("traineesPerSecond", perSecond))
}
