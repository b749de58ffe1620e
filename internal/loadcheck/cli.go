package loadcheck

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/coachfit/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log output to stdout and, when logFile is set, to that
// file as well.
func SetupLogging(logFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithWriter(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`coachfit load check
===================

Generates trainee profiles, submits them concurrently and verifies that the
single, ranked and batch endpoints agree.

Usage:
  recommend-load [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -trainees int      Number of trainees to generate (default 1000)
  -top int           Limit for the ranked endpoint (default 5)
  -batch int         Trainees per batch request, 0 disables (default 20)
  -workers int       Number of concurrent workers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Write generated trainees to this JSON file
  -log string        Also write logs to this file
  -seed-csv string   Seed this CSV roster into Redis before the run
  -redis string      Redis address for seeding (default "localhost:6379")
  -redis-key string  Redis hash for seeding (default "coachfit:coaches")
  -verbose           Enable verbose logging
  -help              Show this help message
`)
}
