package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// ProviderWithFallback wraps a primary provider with a fallback option
type ProviderWithFallback struct {
	primary  Provider
	fallback Provider
	logger   *zap.SugaredLogger
}

// NewProviderWithFallback creates a provider that falls back to secondary if primary fails
func NewProviderWithFallback(primary, fallback Provider, logger *zap.SugaredLogger) *ProviderWithFallback {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ProviderWithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Name returns the provider name
func (p *ProviderWithFallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", p.primary.Name(), p.fallback.Name())
}

// IsAvailable checks if at least one provider is available
func (p *ProviderWithFallback) IsAvailable() error {
	primaryErr := p.primary.IsAvailable()
	if primaryErr == nil {
		return nil
	}

	fallbackErr := p.fallback.IsAvailable()
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("both providers unavailable: primary=%v, fallback=%v",
		primaryErr, fallbackErr)
}

// LookupWord tries the primary provider first, falls back to secondary on error
func (p *ProviderWithFallback) LookupWord(ctx context.Context, word, hint string) (vocab.WordRecord, error) {
	return withFallback(ctx, p, OpLookup, func(pr Provider) (vocab.WordRecord, error) {
		return pr.LookupWord(ctx, word, hint)
	})
}

// Speak tries the primary provider first, falls back to secondary on error
func (p *ProviderWithFallback) Speak(ctx context.Context, text string) (vocab.Media, error) {
	return withFallback(ctx, p, OpSpeak, func(pr Provider) (vocab.Media, error) {
		return pr.Speak(ctx, text)
	})
}

// AnalyzeImage tries the primary provider first, falls back to secondary on error
func (p *ProviderWithFallback) AnalyzeImage(ctx context.Context, data []byte, mimeType string) ([]vocab.Label, error) {
	return withFallback(ctx, p, OpLabel, func(pr Provider) ([]vocab.Label, error) {
		return pr.AnalyzeImage(ctx, data, mimeType)
	})
}

// GenerateImage tries the primary provider first, falls back to secondary on error
func (p *ProviderWithFallback) GenerateImage(ctx context.Context, prompt string) (vocab.Media, error) {
	return withFallback(ctx, p, OpImage, func(pr Provider) (vocab.Media, error) {
		return pr.GenerateImage(ctx, prompt)
	})
}

// GenerateVideo tries the primary provider first, falls back to secondary on error
func (p *ProviderWithFallback) GenerateVideo(ctx context.Context, prompt string) (vocab.Media, error) {
	return withFallback(ctx, p, OpVideo, func(pr Provider) (vocab.Media, error) {
		return pr.GenerateVideo(ctx, prompt)
	})
}

func withFallback[T any](ctx context.Context, p *ProviderWithFallback, op string, call func(Provider) (T, error)) (T, error) {
	result, err := call(p.primary)
	if err == nil {
		return result, nil
	}
	// The caller gave up; the fallback would be cancelled too
	if ctx.Err() != nil {
		return result, err
	}

	if errors.Is(err, ErrUnsupported) {
		p.logger.Debugw("primary provider does not support operation",
			"operation", op, "primary", p.primary.Name(), "fallback", p.fallback.Name())
	} else {
		p.logger.Warnw("primary provider failed, falling back",
			"operation", op, "primary", p.primary.Name(), "fallback", p.fallback.Name(), "error", err)
	}

	result, fallbackErr := call(p.fallback)
	if fallbackErr != nil {
		if errors.Is(err, ErrUnsupported) {
			return result, fallbackErr
		}
		return result, fmt.Errorf("%s failed on both providers: %w", op, errors.Join(err, fallbackErr))
	}
	return result, nil
}
