package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/metrics"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// BreakerSettings configures the circuit breaker in front of a provider
type BreakerSettings struct {
	MaxFailures int           // Consecutive failures that open the breaker
	Timeout     time.Duration // Open period before a half-open trial request
}

// BreakerProvider stops calling a failing provider for a while so that an
// outage fails fast instead of every request waiting for its own timeout
type BreakerProvider struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// NewBreakerProvider wraps provider with a circuit breaker
func NewBreakerProvider(provider Provider, settings BreakerSettings, logger *zap.SugaredLogger, m *metrics.Metrics) *BreakerProvider {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if settings.MaxFailures <= 0 {
		settings.MaxFailures = 5
	}

	p := &BreakerProvider{provider: provider, logger: logger, metrics: m}
	maxFailures := uint32(settings.MaxFailures)

	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warnw("circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
			p.metrics.SetBreakerState(name, int(to))
		},
		IsSuccessful: isBreakerSuccess,
	})
	return p
}

// isBreakerSuccess reports errors that say nothing about the remote health
func isBreakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrUnsupported)
}

// State returns the current breaker state
func (p *BreakerProvider) State() gobreaker.State {
	return p.cb.State()
}

// Name returns the wrapped provider name
func (p *BreakerProvider) Name() string {
	return p.provider.Name()
}

// IsAvailable reports ErrUnavailable while the breaker is open
func (p *BreakerProvider) IsAvailable() error {
	if p.cb.State() == gobreaker.StateOpen {
		return ErrUnavailable
	}
	return p.provider.IsAvailable()
}

// LookupWord calls the wrapped provider through the breaker
func (p *BreakerProvider) LookupWord(ctx context.Context, word, hint string) (vocab.WordRecord, error) {
	return execute(p, func() (vocab.WordRecord, error) { return p.provider.LookupWord(ctx, word, hint) })
}

// Speak calls the wrapped provider through the breaker
func (p *BreakerProvider) Speak(ctx context.Context, text string) (vocab.Media, error) {
	return execute(p, func() (vocab.Media, error) { return p.provider.Speak(ctx, text) })
}

// AnalyzeImage calls the wrapped provider through the breaker
func (p *BreakerProvider) AnalyzeImage(ctx context.Context, data []byte, mimeType string) ([]vocab.Label, error) {
	return execute(p, func() ([]vocab.Label, error) { return p.provider.AnalyzeImage(ctx, data, mimeType) })
}

// GenerateImage calls the wrapped provider through the breaker
func (p *BreakerProvider) GenerateImage(ctx context.Context, prompt string) (vocab.Media, error) {
	return execute(p, func() (vocab.Media, error) { return p.provider.GenerateImage(ctx, prompt) })
}

// GenerateVideo calls the wrapped provider through the breaker
func (p *BreakerProvider) GenerateVideo(ctx context.Context, prompt string) (vocab.Media, error) {
	return execute(p, func() (vocab.Media, error) { return p.provider.GenerateVideo(ctx, prompt) })
}

func execute[T any](p *BreakerProvider, call func() (T, error)) (T, error) {
	var zero T
	result, err := p.cb.Execute(func() (interface{}, error) {
		return call()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, p.provider.Name(), err)
	}
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
