package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/metrics"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// GeminiProvider implements Provider with the Gemini API
type GeminiProvider struct {
	client  *genai.Client
	config  *Config
	clock   clockwork.Clock
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, config *Config) (*GeminiProvider, error) {
	client, err := NewGeminiClient(ctx, config.GeminiKey, config.GeminiBaseURL)
	if err != nil {
		return nil, err
	}

	return &GeminiProvider{
		client:  client,
		config:  config,
		clock:   clockwork.NewRealClock(),
		logger:  logger(config),
		metrics: config.Metrics,
	}, nil
}

// NewGeminiClient creates a Gemini API client. A non-empty baseURL replaces
// the public endpoint.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// Client returns the underlying API client, shared with the live transport
func (p *GeminiProvider) Client() *genai.Client {
	return p.client
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks that an API key is configured
func (p *GeminiProvider) IsAvailable() error {
	if p.config.GeminiKey == "" {
		return fmt.Errorf("Gemini API key not configured")
	}
	return nil
}

// LookupWord asks the text model for a structured word record
func (p *GeminiProvider) LookupWord(ctx context.Context, word, hint string) (record vocab.WordRecord, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpLookup, start, err) }(time.Now())

	resp, err := p.client.Models.GenerateContent(ctx, p.config.TextModel, genai.Text(lookupPrompt(word, hint)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(lookupInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    wordRecordSchema(),
		Temperature:       genai.Ptr[float32](0.2),
	})
	if err != nil {
		return record, fmt.Errorf("Gemini lookup failed: %w", err)
	}

	return parseWordRecord(resp.Text(), word)
}

// Speak synthesizes text with the TTS model and returns WAV audio
func (p *GeminiProvider) Speak(ctx context.Context, text string) (media vocab.Media, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpSpeak, start, err) }(time.Now())

	resp, err := p.client.Models.GenerateContent(ctx, p.config.TTSModel, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: p.config.TTSVoice},
			},
		},
	})
	if err != nil {
		return media, fmt.Errorf("Gemini TTS failed: %w", err)
	}

	blob := firstInlineData(resp)
	if blob == nil || len(blob.Data) == 0 {
		return media, fmt.Errorf("Gemini TTS: %w", ErrEmptyResponse)
	}

	format := audio.Format{
		SampleRate: audio.ParsePCMMIMEType(blob.MIMEType, audio.OutputFormat.SampleRate),
		Channels:   1,
	}
	wav, err := audio.EncodeWAV(blob.Data, format)
	if err != nil {
		return media, fmt.Errorf("failed to encode speech: %w", err)
	}
	return vocab.Media{Data: wav, MIMEType: "audio/wav"}, nil
}

// AnalyzeImage sends the image inline and asks for a list of labels
func (p *GeminiProvider) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (labels []vocab.Label, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpLabel, start, err) }(time.Now())

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(labelInstruction),
		}, genai.RoleUser),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.TextModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   labelsSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini image analysis failed: %w", err)
	}

	return parseLabels(resp.Text())
}

// GenerateImage creates one square image
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string) (media vocab.Media, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpImage, start, err) }(time.Now())

	resp, err := p.client.Models.GenerateImages(ctx, p.config.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "1:1",
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return media, fmt.Errorf("Gemini image generation failed: %w", err)
	}

	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := img.Image.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return vocab.Media{Data: img.Image.ImageBytes, MIMEType: mimeType}, nil
	}

	if len(resp.GeneratedImages) > 0 && resp.GeneratedImages[0].RAIFilteredReason != "" {
		return media, fmt.Errorf("image blocked by safety filter: %s", resp.GeneratedImages[0].RAIFilteredReason)
	}
	return media, fmt.Errorf("Gemini image generation: %w", ErrEmptyResponse)
}

// GenerateVideo starts a video generation operation, polls it until done
// and downloads the first video
func (p *GeminiProvider) GenerateVideo(ctx context.Context, prompt string) (media vocab.Media, err error) {
	defer func(start time.Time) { observe(p.metrics, p.Name(), OpVideo, start, err) }(time.Now())

	op, err := p.client.Models.GenerateVideos(ctx, p.config.VideoModel, prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    "16:9",
	})
	if err != nil {
		return media, fmt.Errorf("Gemini video generation failed: %w", err)
	}

	interval := p.config.VideoPollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	for !op.Done {
		p.logger.Debugw("waiting for video operation", "operation", op.Name)
		select {
		case <-ctx.Done():
			return media, ctx.Err()
		case <-p.clock.After(interval):
		}

		op, err = p.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return media, fmt.Errorf("failed to poll video operation: %w", err)
		}
	}

	if len(op.Error) > 0 {
		return media, fmt.Errorf("video operation failed: %s", operationError(op.Error))
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			return media, fmt.Errorf("video blocked by safety filter: %s", strings.Join(op.Response.RAIMediaFilteredReasons, "; "))
		}
		return media, fmt.Errorf("Gemini video generation: %w", ErrEmptyResponse)
	}

	generated := op.Response.GeneratedVideos[0]
	data := generated.Video.VideoBytes
	if len(data) == 0 {
		data, err = p.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(generated), nil)
		if err != nil {
			return media, fmt.Errorf("failed to download video: %w", err)
		}
	}

	mimeType := generated.Video.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	return vocab.Media{Data: data, MIMEType: mimeType}, nil
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part != nil && part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}

// operationError formats the status object of a failed long-running operation
func operationError(status map[string]any) string {
	if msg, ok := status["message"].(string); ok && msg != "" {
		if code, ok := status["code"]; ok {
			return fmt.Sprintf("%v: %s", code, msg)
		}
		return msg
	}
	return fmt.Sprintf("%v", status)
}
