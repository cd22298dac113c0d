package ai

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Supervisor wraps a Generator with the resilience machinery every model call
// goes through: rate limiting, a concurrency cap, retry with backoff and a
// circuit breaker.
//
// The responsibilities are split across files:
// - supervisor.go: Core struct and constructor (this file)
// - retry.go: Circuit breaker and retry logic
// - deduplication.go: Pairwise duplicate comparison
// - json_parser.go: Resilient parsing of model output
// - utils.go: Generic calls and truncation helpers
type Supervisor struct {
	generator      Generator
	model          string
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
	limiter        *rate.Limiter
}

// Config holds supervisor configuration
type Config struct {
	Generator Generator   // Backend used for every call (required)
	Model     string      // Model to use (default: provider default)
	Retry     RetryConfig // Retry configuration (uses defaults if zero)
}

// NewSupervisor creates a new AI supervisor
func NewSupervisor(cfg *Config) (*Supervisor, error) {
	if cfg == nil || cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Generator.Name())
	}

	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	if retry.BackoffMultiplier <= 0 {
		retry.BackoffMultiplier = 2.0
	}

	var circuitBreaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		circuitBreaker = NewCircuitBreaker(
			retry.FailureThreshold,
			retry.SuccessThreshold,
			retry.OpenTimeout,
		)
		log.Printf("[AI] Circuit breaker initialized: threshold=%d failures, recovery=%d successes, timeout=%v",
			retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	var concurrencySem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	var limiter *rate.Limiter
	if retry.RequestsPerSecond > 0 {
		burst := retry.MaxConcurrentCalls
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(retry.RequestsPerSecond), burst)
	}

	return &Supervisor{
		generator:      cfg.Generator,
		model:          model,
		retry:          retry,
		circuitBreaker: circuitBreaker,
		concurrencySem: concurrencySem,
		limiter:        limiter,
	}, nil
}

// Model returns the model name used when callers don't pass one
func (s *Supervisor) Model() string {
	return s.model
}

// Provider returns the name of the underlying generator
func (s *Supervisor) Provider() string {
	return s.generator.Name()
}

// HealthCheck performs a pre-flight check of the supervisor's health
// Returns an error if the circuit breaker is open
func (s *Supervisor) HealthCheck(ctx context.Context) error {
	if s.circuitBreaker != nil {
		state, failures, _ := s.circuitBreaker.GetMetrics()
		switch state {
		case CircuitOpen:
			return fmt.Errorf("AI supervisor unavailable: %w (failures=%d, retry in %v)",
				ErrCircuitOpen, failures, s.retry.OpenTimeout)
		case CircuitHalfOpen:
			log.Printf("[AI] Supervisor in half-open state (probing for recovery)")
		case CircuitClosed:
		}
	}
	return nil
}
