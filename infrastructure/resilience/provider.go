// Package resilience provides resilient model access using fortify.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/queryagent/infrastructure/llm"
)

// ErrPermanent marks completion failures that must not be retried.
var ErrPermanent = errors.New("permanent model error")

// Provider wraps an llm.Provider with timeout, circuit breaker, and
// transport-only retry. Retries repeat the identical completion request;
// the response content is never inspected or altered here, so a retried
// call is indistinguishable from a slow first call.
type Provider struct {
	inner   llm.Provider
	breaker circuitbreaker.CircuitBreaker[llm.CompletionResponse]
	retry   retry.Retry[llm.CompletionResponse]
	timeout time.Duration
}

// Config configures the resilient provider.
type Config struct {
	// CircuitBreakerThreshold is the consecutive-failure count before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts per call.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between attempts.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// Timeout bounds a single completion call, retries included.
	Timeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       200 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		Timeout:                 60 * time.Second,
	}
}

// NewProvider wraps inner with the configured resilience patterns.
func NewProvider(inner llm.Provider, config Config) *Provider {
	threshold := config.CircuitBreakerThreshold
	if threshold < 1 {
		threshold = 5
	}

	return &Provider{
		inner: inner,
		breaker: circuitbreaker.New[llm.CompletionResponse](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[llm.CompletionResponse](retry.Config{
			MaxAttempts:   config.RetryMaxAttempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
			// Client errors are final; only transport failures are retried.
			NonRetryableErrors: []error{ErrPermanent},
		}),
		timeout: config.Timeout,
	}
}

// Name returns the wrapped provider name.
func (p *Provider) Name() string {
	return p.inner.Name()
}

// Complete runs the completion through timeout, circuit breaker, and retry.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.breaker.Execute(ctx, func(ctx context.Context) (llm.CompletionResponse, error) {
		return p.retry.Do(ctx, func(ctx context.Context) (llm.CompletionResponse, error) {
			resp, err := p.inner.Complete(ctx, req)
			if err != nil && !Transient(err) {
				return resp, fmt.Errorf("%w: %w", ErrPermanent, err)
			}
			return resp, err
		})
	})
}

// State returns the current circuit breaker state.
func (p *Provider) State() circuitbreaker.State {
	return p.breaker.State()
}

// Transient reports whether an error is a transport-level failure worth
// retrying: the connection failed, the service throttled, or the service
// errored. Model responses that parsed but said the wrong thing are not
// transient and are never retried here.
func Transient(err error) bool {
	var modelErr *llm.ModelError
	if !errors.As(err, &modelErr) {
		return false
	}
	switch {
	case modelErr.StatusCode == 0:
		return true
	case modelErr.StatusCode == 429:
		return true
	case modelErr.StatusCode >= 500:
		return true
	default:
		return false
	}
}
