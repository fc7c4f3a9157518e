package scorer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
)

// RateLimiter provides rate limiting for model calls.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewRateLimiter creates a new rate limiter.
// rps: requests per second
// burst: maximum burst size
func NewRateLimiter(rps float64, burst int, log logger.Logger) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = max(int(rps), 1)
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  log,
	}
}

// Wait waits until rate limit allows the operation.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn("Rate limiter wait failed", logger.Error(err))
		return err
	}
	return nil
}

type rateLimited struct {
	next    Scorer
	limiter *RateLimiter
}

// WithRateLimit makes every call wait for a limiter token first.
func WithRateLimit(next Scorer, limiter *RateLimiter) Scorer {
	return &rateLimited{next: next, limiter: limiter}
}

func (r *rateLimited) Classify(ctx context.Context, c Content) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Classify(ctx, c)
}

func (r *rateLimited) Score(ctx context.Context, c Content) (float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return r.next.Score(ctx, c)
}

type timeoutScorer struct {
	next    Scorer
	timeout time.Duration
}

// WithTimeout bounds every call with its own deadline.
func WithTimeout(next Scorer, timeout time.Duration) Scorer {
	if timeout <= 0 {
		return next
	}
	return &timeoutScorer{next: next, timeout: timeout}
}

func (t *timeoutScorer) Classify(ctx context.Context, c Content) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Classify(ctx, c)
}

func (t *timeoutScorer) Score(ctx context.Context, c Content) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Score(ctx, c)
}

// Observer receives one event per model call.
type Observer func(op string, kind Kind, duration time.Duration, err error)

type observed struct {
	next    Scorer
	observe Observer
}

// WithObserver reports every call to observe.
func WithObserver(next Scorer, observe Observer) Scorer {
	if observe == nil {
		return next
	}
	return &observed{next: next, observe: observe}
}

func (o *observed) Classify(ctx context.Context, c Content) ([]string, error) {
	start := time.Now()
	tags, err := o.next.Classify(ctx, c)
	o.observe("classify", c.Kind, time.Since(start), err)
	return tags, err
}

func (o *observed) Score(ctx context.Context, c Content) (float64, error) {
	start := time.Now()
	score, err := o.next.Score(ctx, c)
	o.observe("score", c.Kind, time.Since(start), err)
	return score, err
}

type guarded struct {
	next    Scorer
	breaker *circuitbreaker.Breaker
}

// NewBreaker returns a breaker that ignores unusable replies; only transport
// and backend failures count toward opening it.
func NewBreaker(threshold int, cooldown time.Duration, log logger.Logger) *circuitbreaker.Breaker {
	if log == nil {
		log = logger.NewNop()
	}
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: threshold,
		Timeout:          cooldown,
		IsFailure: func(err error) bool {
			return !errors.Is(err, ErrEmptyReply)
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("Scorer circuit state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
}

// WithCircuitBreaker stops calling next while the breaker is open. Rejected
// calls fail with an error wrapping both ErrUnavailable and ErrCircuitOpen.
func WithCircuitBreaker(next Scorer, breaker *circuitbreaker.Breaker) Scorer {
	if breaker == nil {
		return next
	}
	return &guarded{next: next, breaker: breaker}
}

func (g *guarded) Classify(ctx context.Context, c Content) ([]string, error) {
	var tags []string
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		tags, callErr = g.next.Classify(ctx, c)
		return callErr
	})
	return tags, rejected(err)
}

func (g *guarded) Score(ctx context.Context, c Content) (float64, error) {
	var score float64
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		score, callErr = g.next.Score(ctx, c)
		return callErr
	})
	return score, rejected(err)
}

func rejected(err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
