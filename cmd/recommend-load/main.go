package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/coachfit/internal/loadcheck"
)

// Default configuration constants.
const (
	defaultNumTrainees = 1000
	defaultTopN        = 5
	defaultBatchSize   = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		trainees  = flag.Int("trainees", defaultNumTrainees, "Number of trainees to generate")
		topN      = flag.Int("top", defaultTopN, "Limit for the ranked endpoint")
		batchSize = flag.Int("batch", defaultBatchSize, "Trainees per batch request, 0 disables")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output    = flag.String("output", "", "Write generated trainees to this JSON file")
		logFile   = flag.String("log", "", "Also write logs to this file")
		seedCSV   = flag.String("seed-csv", "", "Seed this CSV roster into Redis before the run")
		redisAddr = flag.String("redis", "localhost:6379", "Redis address for seeding")
		redisKey  = flag.String("redis-key", "coachfit:coaches", "Redis hash for seeding")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadcheck.ShowHelp()
		return
	}

	if err := loadcheck.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadcheck.Config{
		BaseURL:     *baseURL,
		NumTrainees: *trainees,
		TopN:        *topN,
		BatchSize:   *batchSize,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *output,
		Verbose:     *verbose,
		SeedCSV:     *seedCSV,
		RedisAddr:   *redisAddr,
		RedisKey:    *redisKey,
	}

	if _, err := loadcheck.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Load check failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
