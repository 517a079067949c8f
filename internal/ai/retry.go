package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// RetryConfig holds retry configuration for API calls
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-request timeout (default: 60s)

	// Circuit breaker settings
	CircuitBreakerEnabled bool          // Enable circuit breaker (default: true)
	FailureThreshold      int           // Failures before opening circuit (default: 5)
	SuccessThreshold      int           // Successes in half-open before closing (default: 2)
	OpenTimeout           time.Duration // How long to keep circuit open (default: 30s)

	// Concurrency limit
	MaxConcurrentCalls int // Maximum concurrent API calls (default: 3, 0 = unlimited)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            3,
		InitialBackoff:        1 * time.Second,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
		Timeout:               60 * time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           30 * time.Second,
		MaxConcurrentCalls:    3,
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

type circuitState int

const (
	circuitClosed circuitState = iota // Normal operation, requests pass through
	circuitOpen                       // Too many failures, block requests (fail fast)
	circuitHalfOpen                   // Testing recovery, allow limited requests
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "CLOSED"
	case circuitOpen:
		return "OPEN"
	case circuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// circuitBreaker fails fast once the API has produced a run of failures,
// probing for recovery after a cool-down period.
type circuitBreaker struct {
	mu sync.Mutex

	state            circuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

func newCircuitBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{
		state:            circuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
	}
}

// allow reports whether a request may proceed, transitioning from open to
// half-open once the cool-down has elapsed.
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return nil
	case circuitOpen:
		if time.Since(cb.lastFailureTime) > cb.openTimeout {
			cb.state = circuitHalfOpen
			cb.successCount = 0
			return nil
		}
		return ErrCircuitOpen
	case circuitHalfOpen:
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		cb.failureCount = 0
	case circuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			slog.Info("circuit breaker closed", "successes", cb.successCount)
			cb.state = circuitClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()
	switch cb.state {
	case circuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			slog.Warn("circuit breaker opened",
				"failures", cb.failureCount,
				"reopen_after", cb.openTimeout)
			cb.state = circuitOpen
		}
	case circuitHalfOpen:
		// One failure while probing reopens the circuit.
		cb.state = circuitOpen
	}
}

// retryWithBackoff executes fn with bounded retries, exponential backoff,
// and circuit-breaker protection. Non-retriable errors return immediately.
func (a *Analyst) retryWithBackoff(ctx context.Context, operation string, fn func(context.Context) error) error {
	if a.sem != nil {
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire concurrency slot for %s: %w", operation, err)
		}
		defer a.sem.Release(1)
	}

	var lastErr error
	backoff := a.retry.InitialBackoff

	for attempt := 0; attempt <= a.retry.MaxRetries; attempt++ {
		if a.breaker != nil {
			if err := a.breaker.allow(); err != nil {
				return fmt.Errorf("%s failed: %w", operation, err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.retry.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if a.breaker != nil {
				a.breaker.recordSuccess()
			}
			if attempt > 0 {
				slog.Debug("API call succeeded after retry",
					"operation", operation,
					"retries", attempt)
			}
			return nil
		}
		lastErr = err

		if !isRetriableError(err) {
			return err
		}
		if a.breaker != nil {
			a.breaker.recordFailure()
		}
		if attempt == a.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: %w", operation, ctx.Err())
		}

		slog.Debug("API call failed, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * a.retry.BackoffMultiplier)
			if backoff > a.retry.MaxBackoff {
				backoff = a.retry.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("%s failed during backoff: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, a.retry.MaxRetries+1, lastErr)
}

// isRetriableError reports whether an error is transient. Rate limits,
// server errors, and network failures retry; client errors do not.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return true
	}
	for _, code := range []string{"500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout"} {
		if strings.Contains(errStr, code) {
			return true
		}
	}
	for _, netErr := range []string{"connection refused", "connection reset",
		"timeout", "temporary failure", "network"} {
		if strings.Contains(errStr, netErr) {
			return true
		}
	}
	return false
}
