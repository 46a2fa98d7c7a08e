package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/lexilive/internal/metrics"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// OpenAIProvider implements Provider with the OpenAI API. Video generation
// is not available and returns ErrUnsupported.
type OpenAIProvider struct {
	client  *openai.Client
	config  *Config
	metrics *metrics.Metrics
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config *Config) (*OpenAIProvider, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &OpenAIProvider{
		client:  NewOpenAIClient(config.OpenAIKey, config.OpenAIBaseURL),
		config:  config,
		metrics: config.Metrics,
	}, nil
}

// NewOpenAIClient creates an OpenAI client. A non-empty baseURL replaces
// the public endpoint.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cc)
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the OpenAI API is configured
func (p *OpenAIProvider) IsAvailable() error {
	if p.config.OpenAIKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	// We could make a test API call here, but that would use credits
	return nil
}

// LookupWord asks the chat model for a word record in JSON mode
func (p *OpenAIProvider) LookupWord(ctx context.Context, word, hint string) (record vocab.WordRecord, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpLookup, start, err) }(time.Now())

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.config.OpenAITextModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: lookupInstruction + "\n\nAnswer with a single JSON object with exactly these keys.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: lookupPrompt(word, hint),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return record, fmt.Errorf("OpenAI lookup failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return record, fmt.Errorf("OpenAI lookup: %w", ErrEmptyResponse)
	}

	return parseWordRecord(resp.Choices[0].Message.Content, word)
}

// Speak synthesizes text with the TTS model and returns WAV audio
func (p *OpenAIProvider) Speak(ctx context.Context, text string) (media vocab.Media, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpSpeak, start, err) }(time.Now())

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.OpenAITTSModel),
		Input:          strings.TrimSpace(text),
		Voice:          openai.SpeechVoice(p.config.OpenAIVoice),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          p.config.OpenAISpeed,
	}
	if p.config.OpenAITTSModel == "gpt-4o-mini-tts" {
		req.Instructions = "Speak clearly and slightly slowly for a language learner."
	}

	response, err := p.client.CreateSpeech(ctx, req)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "does not have access to model") {
			return media, fmt.Errorf("OpenAI TTS API error: %w\nNote: The %s model requires access. Try tts-1-hd instead", err, p.config.OpenAITTSModel)
		}
		return media, fmt.Errorf("OpenAI TTS API error: %w", err)
	}
	defer response.Close()

	data, err := io.ReadAll(response)
	if err != nil {
		return media, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return media, fmt.Errorf("no audio data received from OpenAI: %w", ErrEmptyResponse)
	}

	return vocab.Media{Data: data, MIMEType: "audio/wav"}, nil
}

// AnalyzeImage labels an image with a vision chat request
func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (labels []vocab.Label, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpLabel, start, err) }(time.Now())

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.config.OpenAITextModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: labelJSONPrompt()},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI image analysis failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI image analysis: %w", ErrEmptyResponse)
	}

	return parseLabels(resp.Choices[0].Message.Content)
}

// GenerateImage creates one square image returned as base64 JSON
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) (media vocab.Media, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpImage, start, err) }(time.Now())

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.config.OpenAIImageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return media, fmt.Errorf("OpenAI image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return media, fmt.Errorf("OpenAI image generation: %w", ErrEmptyResponse)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return media, fmt.Errorf("failed to decode image: %w", err)
	}
	return vocab.Media{Data: data, MIMEType: "image/png"}, nil
}

// GenerateVideo is not offered by this provider
func (p *OpenAIProvider) GenerateVideo(ctx context.Context, prompt string) (vocab.Media, error) {
	return vocab.Media{}, fmt.Errorf("openai video generation: %w", ErrUnsupported)
}
