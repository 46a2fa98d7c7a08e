package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/lexilive/internal"
	"codeberg.org/snonux/lexilive/internal/ai"
	"codeberg.org/snonux/lexilive/internal/live"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lexilive",
		Short: "English Vocabulary Trainer with a Live AI Tutor",
		Long: `lexilive looks up English words with a generative AI model, keeps the
ones you save, illustrates them and lets you practise speaking in a
realtime voice conversation.

Examples:
  lexilive                        # Launch interactive GUI (default)
  lexilive lookup serendipity     # Look a word up
  lexilive save serendipity       # Look a word up and save it
  lexilive import words.txt       # Save every word from a file
  lexilive live --practice        # Talk about your saved words
  lexilive serve                  # Start the HTTP API`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

// DefaultDataDir returns the directory holding the database and media
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "lexilive")
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	// Global flags
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.lexilive.yaml)")
	pf.StringVarP(&flags.DataDir, "data-dir", "d", DefaultDataDir(), "Directory for the word list and generated media")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: console or json")

	// AI flags
	pf.StringVar(&flags.Provider, "provider", flags.Provider, "AI provider: gemini or openai")
	pf.StringVar(&flags.Fallback, "fallback", "", "Fallback AI provider used when the primary fails")
	pf.StringVar(&flags.TextModel, "text-model", flags.TextModel, "Gemini model for word lookup and image labeling")
	pf.StringVar(&flags.TTSModel, "tts-model", flags.TTSModel, "Gemini speech model")
	pf.StringVar(&flags.TTSVoice, "tts-voice", flags.TTSVoice, "Gemini speech voice")
	pf.StringVar(&flags.ImageModel, "image-model", flags.ImageModel, "Gemini image generation model")
	pf.StringVar(&flags.VideoModel, "video-model", flags.VideoModel, "Gemini video generation model")
	pf.DurationVar(&flags.VideoPollInterval, "video-poll-interval", flags.VideoPollInterval, "How often to poll a running video generation")
	pf.BoolVar(&flags.NoCache, "no-cache", false, "Do not cache synthesized speech")

	// OpenAI flags
	pf.StringVar(&flags.OpenAITextModel, "openai-text-model", flags.OpenAITextModel, "OpenAI chat model for lookup and labeling")
	pf.StringVar(&flags.OpenAITTSModel, "openai-tts-model", flags.OpenAITTSModel, "OpenAI TTS model: tts-1, tts-1-hd, gpt-4o-mini-tts")
	pf.StringVar(&flags.OpenAIVoice, "openai-voice", flags.OpenAIVoice, "OpenAI voice: alloy, ash, ballad, coral, echo, fable, onyx, nova, sage, shimmer, verse")
	pf.Float64Var(&flags.OpenAISpeed, "openai-speed", flags.OpenAISpeed, "OpenAI speech speed (0.25 to 4.0)")
	pf.StringVar(&flags.OpenAIImageModel, "openai-image-model", flags.OpenAIImageModel, "OpenAI image model: dall-e-2 or dall-e-3")

	// Live flags
	pf.StringVar(&flags.LiveModel, "live-model", flags.LiveModel, "Gemini model for live conversation")
	pf.StringVar(&flags.LiveVoice, "live-voice", flags.LiveVoice, "Voice of the live tutor")
	pf.IntVar(&flags.FrameSamples, "frame-samples", flags.FrameSamples, "Microphone samples per frame sent to the live model")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	viper.BindPFlag("data.directory", pf.Lookup("data-dir"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))
	viper.BindPFlag("ai.provider", pf.Lookup("provider"))
	viper.BindPFlag("ai.fallback", pf.Lookup("fallback"))
	viper.BindPFlag("ai.text_model", pf.Lookup("text-model"))
	viper.BindPFlag("ai.tts_model", pf.Lookup("tts-model"))
	viper.BindPFlag("ai.tts_voice", pf.Lookup("tts-voice"))
	viper.BindPFlag("ai.image_model", pf.Lookup("image-model"))
	viper.BindPFlag("ai.video_model", pf.Lookup("video-model"))
	viper.BindPFlag("ai.video_poll_interval", pf.Lookup("video-poll-interval"))
	viper.BindPFlag("ai.no_cache", pf.Lookup("no-cache"))
	// Bind OpenAI flags
	viper.BindPFlag("ai.openai_text_model", pf.Lookup("openai-text-model"))
	viper.BindPFlag("ai.openai_tts_model", pf.Lookup("openai-tts-model"))
	viper.BindPFlag("ai.openai_voice", pf.Lookup("openai-voice"))
	viper.BindPFlag("ai.openai_speed", pf.Lookup("openai-speed"))
	viper.BindPFlag("ai.openai_image_model", pf.Lookup("openai-image-model"))
	// Bind live flags
	viper.BindPFlag("ai.live_model", pf.Lookup("live-model"))
	viper.BindPFlag("ai.live_voice", pf.Lookup("live-voice"))
	viper.BindPFlag("live.frame_samples", pf.Lookup("frame-samples"))
}

// InitConfig initializes viper configuration. A .env file in the working
// directory is loaded first so API keys can live there.
func InitConfig(cfgFile string) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".lexilive" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lexilive")
	}

	// Environment variables, e.g. LEXILIVE_AI_PROVIDER
	viper.SetEnvPrefix("LEXILIVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	// First check environment variables
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}

	// Then check config file
	return viper.GetString("ai.gemini_key")
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("ai.openai_key")
}

// DataDir returns the configured data directory
func DataDir() string {
	if dir := viper.GetString("data.directory"); dir != "" {
		return dir
	}
	return DefaultDataDir()
}

// AIConfig builds the provider configuration from flags, config file and
// environment. Logger and metrics are left for the caller.
func AIConfig() *ai.Config {
	config := ai.DefaultConfig()

	config.Provider = stringOr("ai.provider", config.Provider)
	config.Fallback = viper.GetString("ai.fallback")
	config.GeminiKey = GetGeminiKey()
	config.OpenAIKey = GetOpenAIKey()

	config.TextModel = stringOr("ai.text_model", config.TextModel)
	config.TTSModel = stringOr("ai.tts_model", config.TTSModel)
	config.TTSVoice = stringOr("ai.tts_voice", config.TTSVoice)
	config.ImageModel = stringOr("ai.image_model", config.ImageModel)
	config.VideoModel = stringOr("ai.video_model", config.VideoModel)
	if d := viper.GetDuration("ai.video_poll_interval"); d > 0 {
		config.VideoPollInterval = d
	}

	config.OpenAITextModel = stringOr("ai.openai_text_model", config.OpenAITextModel)
	config.OpenAITTSModel = stringOr("ai.openai_tts_model", config.OpenAITTSModel)
	config.OpenAIVoice = stringOr("ai.openai_voice", config.OpenAIVoice)
	if speed := viper.GetFloat64("ai.openai_speed"); speed > 0 {
		config.OpenAISpeed = speed
	}
	config.OpenAIImageModel = stringOr("ai.openai_image_model", config.OpenAIImageModel)

	config.EnableCache = !viper.GetBool("ai.no_cache")
	config.CacheDir = filepath.Join(DataDir(), "speech_cache")

	return config
}

// LiveConfig builds the live conversation configuration
func LiveConfig() live.Config {
	config := live.DefaultConfig()
	config.Model = stringOr("ai.live_model", config.Model)
	config.Voice = stringOr("ai.live_voice", config.Voice)
	return config
}

// FrameSamples returns the configured microphone frame size
func FrameSamples() int {
	if n := viper.GetInt("live.frame_samples"); n > 0 {
		return n
	}
	return live.DefaultFrameSamples
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(viper.GetString(key)); v != "" {
		return v
	}
	return def
}
