package scoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/okian/coachfit/pkg/logger"
	"github.com/okian/coachfit/pkg/metrics"
)

const (
	defaultRPCTimeout       = 5 * time.Second
	defaultFailureThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
	defaultHalfOpenRequests = 1
	maxErrorBodyBytes       = 512
)

// RPCScorer delegates to an external model server. The request body is
//
//	{"feature_columns": [...], "instances": [[...], ...]}
//
// and the server must answer {"scores": [...]} with one score per instance.
type RPCScorer struct {
	endpoint string
	columns  []string
	timeout  time.Duration
	client   *http.Client
	log      logger.Logger

	failureThreshold uint32
	cooldown         time.Duration
	breaker          *gobreaker.CircuitBreaker[[]float64]
}

// RPCOption configures an RPCScorer.
type RPCOption func(*RPCScorer)

// WithTimeout bounds a single model server call.
func WithTimeout(d time.Duration) RPCOption {
	return func(s *RPCScorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RPCOption {
	return func(s *RPCScorer) {
		if c != nil {
			s.client = c
		}
	}
}

// WithBreaker sets how many consecutive failures open the circuit and how
// long it stays open.
func WithBreaker(failures uint32, cooldown time.Duration) RPCOption {
	return func(s *RPCScorer) {
		if failures > 0 {
			s.failureThreshold = failures
		}
		if cooldown > 0 {
			s.cooldown = cooldown
		}
	}
}

// WithLogger sets the logger used for breaker state changes.
func WithLogger(l logger.Logger) RPCOption {
	return func(s *RPCScorer) {
		if l != nil {
			s.log = l
		}
	}
}

// NewRPC creates a scorer calling endpoint.
func NewRPC(endpoint string, columns []string, opts ...RPCOption) *RPCScorer {
	s := &RPCScorer{
		endpoint:         endpoint,
		columns:          append([]string(nil), columns...),
		timeout:          defaultRPCTimeout,
		failureThreshold: defaultFailureThreshold,
		cooldown:         defaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}
	if s.log == nil {
		s.log = logger.Get().Named("scoring")
	}

	s.breaker = gobreaker.NewCircuitBreaker[[]float64](gobreaker.Settings{
		Name:        "rpc-scorer",
		MaxRequests: defaultHalfOpenRequests,
		Timeout:     s.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.failureThreshold
		},
		IsSuccessful: func(err error) bool {
			var aborted *callerAbortedError
			return err == nil || errors.As(err, &aborted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn(context.Background(), "scorer circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateScorerBreakerState(breakerGauge(to))
		},
	})
	return s
}

func (s *RPCScorer) Name() string { return TypeRPC }

// PredictProbability sends all rows in one request.
func (s *RPCScorer) PredictProbability(ctx context.Context, rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}

	if err := ctx.Err(); err != nil {
		metrics.RecordScorerRequest(s.Name(), "cancelled")
		return nil, fmt.Errorf("%w: %w", ErrScoring, err)
	}

	scores, err := s.breaker.Execute(func() ([]float64, error) {
		scores, err := s.call(ctx, rows)
		if err != nil && ctx.Err() != nil {
			return nil, &callerAbortedError{err: err}
		}
		return scores, err
	})
	var aborted *callerAbortedError
	if errors.As(err, &aborted) {
		metrics.RecordScorerRequest(s.Name(), "cancelled")
		return nil, aborted.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordScorerRequest(s.Name(), "rejected")
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		metrics.RecordScorerRequest(s.Name(), "error")
		return nil, err
	}
	metrics.RecordScorerRequest(s.Name(), "ok")
	return scores, nil
}

// callerAbortedError marks a call that failed because the caller's context
// ended; the breaker does not count it against the model server.
type callerAbortedError struct {
	err error
}

func (e *callerAbortedError) Error() string { return e.err.Error() }
func (e *callerAbortedError) Unwrap() error { return e.err }

type rpcRequest struct {
	FeatureColumns []string    `json:"feature_columns"`
	Instances      [][]float64 `json:"instances"`
}

type rpcResponse struct {
	Scores []float64 `json:"scores"`
}

func (s *RPCScorer) call(ctx context.Context, rows [][]float64) ([]float64, error) {
	body, err := json.Marshal(rpcRequest{FeatureColumns: s.columns, Instances: rows})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrScoring, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrScoring, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: rpc call: %w", ErrScoring, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("%w: model server status=%d body=%s", ErrScoring, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrScoring, err)
	}
	if len(out.Scores) != len(rows) {
		return nil, fmt.Errorf("%w: expected %d scores, got %d", ErrScoring, len(rows), len(out.Scores))
	}
	return out.Scores, nil
}

func breakerGauge(st gobreaker.State) int {
	switch st {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}
