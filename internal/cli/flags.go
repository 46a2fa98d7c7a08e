package cli

import (
	"time"

	"codeberg.org/snonux/lexilive/internal/ai"
	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/server"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile   string
	DataDir   string
	LogLevel  string
	LogFormat string

	// AI flags
	Provider          string
	Fallback          string
	TextModel         string
	TTSModel          string
	TTSVoice          string
	ImageModel        string
	VideoModel        string
	VideoPollInterval time.Duration
	NoCache           bool

	// OpenAI flags
	OpenAITextModel  string
	OpenAITTSModel   string
	OpenAIVoice      string
	OpenAISpeed      float64
	OpenAIImageModel string

	// Live flags
	LiveModel    string
	LiveVoice    string
	FrameSamples int
	Practice     bool

	// Server flags
	Addr string

	// Command flags
	Shuffle    bool
	NoPlay     bool
	OutputFile string
	AnkiCSV    bool
	DeckName   string
	AnkiAudio  bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	aiDefaults := ai.DefaultConfig()
	liveDefaults := live.DefaultConfig()

	return &Flags{
		LogLevel:          "info",
		LogFormat:         "console",
		Provider:          aiDefaults.Provider,
		TextModel:         aiDefaults.TextModel,
		TTSModel:          aiDefaults.TTSModel,
		TTSVoice:          aiDefaults.TTSVoice,
		ImageModel:        aiDefaults.ImageModel,
		VideoModel:        aiDefaults.VideoModel,
		VideoPollInterval: aiDefaults.VideoPollInterval,
		OpenAITextModel:   aiDefaults.OpenAITextModel,
		OpenAITTSModel:    aiDefaults.OpenAITTSModel,
		OpenAIVoice:       aiDefaults.OpenAIVoice,
		OpenAISpeed:       aiDefaults.OpenAISpeed,
		OpenAIImageModel:  aiDefaults.OpenAIImageModel,
		LiveModel:         liveDefaults.Model,
		LiveVoice:         liveDefaults.Voice,
		FrameSamples:      live.DefaultFrameSamples,
		Addr:              server.DefaultConfig().Addr,
		DeckName:          "English Vocabulary",
	}
}
