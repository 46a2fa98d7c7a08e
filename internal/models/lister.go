package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Category groups models by what lexilive uses them for
type Category string

const (
	CategoryText   Category = "text"
	CategorySpeech Category = "speech"
	CategoryImage  Category = "image"
	CategoryVideo  Category = "video"
	CategoryLive   Category = "live"
)

var categoryOrder = []Category{CategoryText, CategorySpeech, CategoryImage, CategoryVideo, CategoryLive}

var categoryTitles = map[Category]string{
	CategoryText:   "Text Models (lookup and image labeling)",
	CategorySpeech: "Text-to-Speech Models",
	CategoryImage:  "Image Generation Models",
	CategoryVideo:  "Video Generation Models",
	CategoryLive:   "Live Conversation Models",
}

// Model is one remote model
type Model struct {
	Provider string
	ID       string
	Category Category
}

// Lister lists the models available to the configured API keys
type Lister struct {
	gemini *genai.Client
	openai *openai.Client
	logger *zap.SugaredLogger
}

// NewLister creates a new model lister. Either client may be nil.
func NewLister(gemini *genai.Client, openaiClient *openai.Client, logger *zap.SugaredLogger) *Lister {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Lister{
		gemini: gemini,
		openai: openaiClient,
		logger: logger,
	}
}

// List returns the categorized models of all configured providers. A
// provider that fails is skipped unless every provider fails.
func (l *Lister) List(ctx context.Context) ([]Model, error) {
	if l.gemini == nil && l.openai == nil {
		return nil, fmt.Errorf("no API key found. Set GEMINI_API_KEY or OPENAI_API_KEY, or configure ai.gemini_key in .lexilive.yaml")
	}

	var models []Model
	var errs []error

	if l.gemini != nil {
		found, err := l.listGemini(ctx)
		if err != nil {
			l.logger.Warnw("failed to list Gemini models", "error", err)
			errs = append(errs, err)
		}
		models = append(models, found...)
	}
	if l.openai != nil {
		found, err := l.listOpenAI(ctx)
		if err != nil {
			l.logger.Warnw("failed to list OpenAI models", "error", err)
			errs = append(errs, err)
		}
		models = append(models, found...)
	}

	if len(models) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].ID < models[j].ID
	})
	return models, nil
}

func (l *Lister) listGemini(ctx context.Context) ([]Model, error) {
	var models []Model
	for m, err := range l.gemini.Models.All(ctx) {
		if err != nil {
			return models, fmt.Errorf("failed to list Gemini models: %w", err)
		}
		id := strings.TrimPrefix(m.Name, "models/")
		if category := CategorizeGemini(id, m.SupportedActions); category != "" {
			models = append(models, Model{Provider: "gemini", ID: id, Category: category})
		}
	}
	return models, nil
}

func (l *Lister) listOpenAI(ctx context.Context) ([]Model, error) {
	list, err := l.openai.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	var models []Model
	for _, m := range list.Models {
		if category := CategorizeOpenAI(m.ID); category != "" {
			models = append(models, Model{Provider: "openai", ID: m.ID, Category: category})
		}
	}
	return models, nil
}

// CategorizeGemini classifies a Gemini model; empty means not useful here
func CategorizeGemini(id string, actions []string) Category {
	id = strings.ToLower(id)
	for _, a := range actions {
		if a == "bidiGenerateContent" {
			return CategoryLive
		}
	}

	switch {
	case strings.Contains(id, "embedding"), strings.Contains(id, "aqa"):
		return ""
	case strings.Contains(id, "native-audio"), strings.Contains(id, "live"):
		return CategoryLive
	case strings.Contains(id, "tts"):
		return CategorySpeech
	case strings.Contains(id, "imagen"), strings.Contains(id, "image"):
		return CategoryImage
	case strings.Contains(id, "veo"):
		return CategoryVideo
	case strings.Contains(id, "gemini"), strings.Contains(id, "gemma"):
		return CategoryText
	default:
		return ""
	}
}

// CategorizeOpenAI classifies an OpenAI model; empty means not useful here
func CategorizeOpenAI(id string) Category {
	id = strings.ToLower(id)
	switch {
	case strings.Contains(id, "realtime"):
		return CategoryLive
	case strings.Contains(id, "tts"):
		return CategorySpeech
	case strings.Contains(id, "dall-e"), strings.Contains(id, "gpt-image"):
		return CategoryImage
	case strings.Contains(id, "sora"):
		return CategoryVideo
	case strings.Contains(id, "audio"), strings.Contains(id, "transcribe"), strings.Contains(id, "search"):
		return ""
	case strings.HasPrefix(id, "gpt-"), strings.HasPrefix(id, "o1"), strings.HasPrefix(id, "o3"), strings.HasPrefix(id, "o4"):
		return CategoryText
	default:
		return ""
	}
}

// Print writes models grouped by category
func Print(w io.Writer, models []Model) {
	grouped := make(map[Category][]Model)
	for _, m := range models {
		grouped[m.Category] = append(grouped[m.Category], m)
	}

	fmt.Fprintln(w, "Available Models:")
	for _, category := range categoryOrder {
		fmt.Fprintf(w, "\n%s:\n", categoryTitles[category])
		if len(grouped[category]) == 0 {
			fmt.Fprintln(w, "  none found")
			continue
		}
		for _, m := range grouped[category] {
			fmt.Fprintf(w, "  %-8s %s\n", m.Provider, m.ID)
		}
	}
}
