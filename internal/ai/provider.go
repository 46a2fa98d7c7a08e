package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/metrics"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

var (
	// ErrUnsupported is returned when a provider does not implement an operation
	ErrUnsupported = errors.New("operation not supported by provider")
	// ErrUnavailable is returned while the circuit breaker is open
	ErrUnavailable = errors.New("AI provider temporarily unavailable")
	// ErrEmptyResponse is returned when the model answers without usable content
	ErrEmptyResponse = errors.New("empty response from model")
)

// Operation names used in logs and metrics
const (
	OpLookup  = "lookup"
	OpSpeak   = "speech"
	OpLabel   = "label"
	OpImage   = "image"
	OpVideo   = "video"
	OpConnect = "live"
)

// Provider defines the interface for remote AI backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured
	IsAvailable() error

	// LookupWord returns the structured definition of word. A non-empty hint
	// names the sense the learner means.
	LookupWord(ctx context.Context, word, hint string) (vocab.WordRecord, error)

	// Speak synthesizes text to speech
	Speak(ctx context.Context, text string) (vocab.Media, error)

	// AnalyzeImage labels the objects in an image
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) ([]vocab.Label, error)

	// GenerateImage creates one image for prompt
	GenerateImage(ctx context.Context, prompt string) (vocab.Media, error)

	// GenerateVideo creates a short video for prompt, blocking until the
	// remote operation completes or ctx is done
	GenerateVideo(ctx context.Context, prompt string) (vocab.Media, error)
}

// Config holds configuration for all providers
type Config struct {
	Provider string // Primary provider: "gemini" or "openai"
	Fallback string // Optional fallback provider, empty for none

	// Gemini settings
	GeminiKey         string
	GeminiBaseURL     string // Overrides the API endpoint, used by tests
	TextModel         string
	TTSModel          string
	TTSVoice          string
	ImageModel        string
	VideoModel        string
	VideoPollInterval time.Duration

	// OpenAI settings
	OpenAIKey        string
	OpenAIBaseURL    string
	OpenAITextModel  string
	OpenAITTSModel   string
	OpenAIVoice      string
	OpenAISpeed      float64
	OpenAIImageModel string

	// Circuit breaker settings
	BreakerFailures int           // Consecutive failures before the breaker opens, 0 disables it
	BreakerTimeout  time.Duration // Time the breaker stays open before probing

	// Speech cache settings
	EnableCache bool
	CacheDir    string

	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:          "gemini",
		TextModel:         "gemini-2.5-flash",
		TTSModel:          "gemini-2.5-flash-preview-tts",
		TTSVoice:          "Kore",
		ImageModel:        "imagen-4.0-generate-001",
		VideoModel:        "veo-3.0-fast-generate-001",
		VideoPollInterval: 10 * time.Second,
		OpenAITextModel:   "gpt-4o-mini",
		OpenAITTSModel:    "gpt-4o-mini-tts",
		OpenAIVoice:       "alloy",
		OpenAISpeed:       1.0,
		OpenAIImageModel:  "dall-e-3",
		BreakerFailures:   5,
		BreakerTimeout:    30 * time.Second,
		EnableCache:       true,
	}
}

// NewProvider creates the provider stack described by config. Each backend
// gets its own breaker and speech cache, so an open primary breaker still
// lets the fallback answer and cached speech is keyed by the voice that
// produced it.
func NewProvider(ctx context.Context, config *Config) (Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	primary, err := newStack(ctx, config.Provider, config)
	if err != nil {
		return nil, err
	}

	if config.Fallback != "" && config.Fallback != config.Provider {
		fallback, err := newStack(ctx, config.Fallback, config)
		if err != nil {
			// A missing fallback key should not prevent startup
			logger(config).Warnw("fallback provider disabled", "provider", config.Fallback, "error", err)
			return primary, nil
		}
		return NewProviderWithFallback(primary, fallback, config.Logger), nil
	}
	return primary, nil
}

// newStack wraps the named backend in its breaker and speech cache
func newStack(ctx context.Context, name string, config *Config) (Provider, error) {
	provider, err := newBackend(ctx, name, config)
	if err != nil {
		return nil, err
	}

	if config.BreakerFailures > 0 {
		provider = NewBreakerProvider(provider, BreakerSettings{
			MaxFailures: config.BreakerFailures,
			Timeout:     config.BreakerTimeout,
		}, config.Logger, config.Metrics)
	}

	if config.EnableCache && config.CacheDir != "" {
		provider, err = NewSpeechCache(provider, config.CacheDir, cacheKeyPrefix(name, config))
		if err != nil {
			return nil, err
		}
	}
	return provider, nil
}

func newBackend(ctx context.Context, name string, config *Config) (Provider, error) {
	switch name {
	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiProvider(ctx, config)
	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIProvider(config)
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", name)
	}
}

// cacheKeyPrefix makes cached speech depend on the backend and its voice settings
func cacheKeyPrefix(name string, config *Config) string {
	switch name {
	case "openai":
		return fmt.Sprintf("openai|%s|%s|%.2f", config.OpenAITTSModel, config.OpenAIVoice, config.OpenAISpeed)
	default:
		return fmt.Sprintf("%s|%s|%s", name, config.TTSModel, config.TTSVoice)
	}
}

func logger(config *Config) *zap.SugaredLogger {
	if config.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return config.Logger
}

// observe records the duration and outcome of one remote call
func observe(m *metrics.Metrics, provider, op string, start time.Time, err error) {
	m.RecordAIRequest(provider, op, time.Since(start), err)
}
