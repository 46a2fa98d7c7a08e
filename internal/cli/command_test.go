package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetViper restores the global viper instance after a test
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

// lookupFlag returns the named flag or fails the test
func lookupFlag(t *testing.T, fs *pflag.FlagSet, name string) *pflag.Flag {
	t.Helper()
	flag := fs.Lookup(name)
	if flag == nil {
		t.Fatalf("Expected flag %s to exist", name)
	}
	return flag
}

func TestCreateRootCommand(t *testing.T) {
	flags := NewFlags()
	cmd := CreateRootCommand(flags)

	// Test basic command properties
	if cmd.Use != "lexilive" {
		t.Errorf("Expected Use to be 'lexilive', got %s", cmd.Use)
	}

	if !strings.Contains(cmd.Short, "Vocabulary Trainer") {
		t.Errorf("Expected Short description to contain 'Vocabulary Trainer'")
	}

	// Test that persistent flags are set up
	for _, name := range []string{
		"config", "data-dir", "log-level", "log-format",
		"provider", "fallback", "text-model", "tts-model", "tts-voice",
		"image-model", "video-model", "video-poll-interval", "no-cache",
		"openai-text-model", "openai-tts-model", "openai-voice", "openai-speed",
		"openai-image-model", "live-model", "live-voice", "frame-samples",
	} {
		t.Run("flag_"+name, func(t *testing.T) {
			flag := lookupFlag(t, cmd.PersistentFlags(), name)
			if flag.Usage == "" {
				t.Errorf("Flag %s has no usage text", name)
			}
		})
	}
}

func TestSetupFlags(t *testing.T) {
	resetViper(t)

	cmd := &cobra.Command{}
	flags := NewFlags()

	setupFlags(cmd, flags)

	// Test default values
	dataFlag := cmd.PersistentFlags().Lookup("data-dir")
	if dataFlag == nil {
		t.Fatal("data-dir flag not found")
	}

	home, _ := os.UserHomeDir()
	expectedDefault := filepath.Join(home, ".local", "state", "lexilive")
	if dataFlag.DefValue != expectedDefault {
		t.Errorf("Expected default data dir to be %s, got %s", expectedDefault, dataFlag.DefValue)
	}

	providerFlag := cmd.PersistentFlags().Lookup("provider")
	if providerFlag == nil {
		t.Fatal("provider flag not found")
	}
	if providerFlag.DefValue != "gemini" {
		t.Errorf("Expected default provider to be gemini, got %s", providerFlag.DefValue)
	}
}

func TestInitConfig(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantDir   string
	}{
		{
			name: "with config file",
			setupFunc: func(t *testing.T) string {
				cfgPath := filepath.Join(t.TempDir(), "test-config.yaml")
				content := `ai:
  provider: openai
  openai_key: test-key
data:
  directory: /test/data`
				if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
					t.Fatalf("Failed to create test config: %v", err)
				}
				return cfgPath
			},
			wantDir: "/test/data",
		},
		{
			name:      "without config file",
			setupFunc: func(t *testing.T) string { return "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			// No .env is picked up from the test directory
			t.Chdir(t.TempDir())

			InitConfig(tt.setupFunc(t))

			// Test environment variable prefix and key replacer
			t.Setenv("LEXILIVE_AI_TTS_VOICE", "Puck")
			if got := viper.GetString("ai.tts_voice"); got != "Puck" {
				t.Errorf("ai.tts_voice = %q, want value from LEXILIVE_AI_TTS_VOICE", got)
			}

			if tt.wantDir != "" && DataDir() != tt.wantDir {
				t.Errorf("DataDir() = %s, want %s", DataDir(), tt.wantDir)
			}
		})
	}
}

func TestInitConfigLoadsDotEnv(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LEXILIVE_TEST_DOTENV=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("LEXILIVE_TEST_DOTENV") })

	InitConfig(filepath.Join(dir, "missing.yaml"))

	if got := viper.GetString("test_dotenv"); got != "from-dotenv" {
		t.Errorf("test_dotenv = %q, want value from .env", got)
	}
}

func TestGetOpenAIKey(t *testing.T) {
	tests := []struct {
		name      string
		envKey    string
		configKey string
		expected  string
	}{
		{"from environment", "env-test-key", "config-test-key", "env-test-key"},
		{"from config when no env", "", "config-test-key", "config-test-key"},
		{"empty when neither set", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			t.Setenv("OPENAI_API_KEY", tt.envKey)

			if tt.configKey != "" {
				viper.Set("ai.openai_key", tt.configKey)
			}

			if got := GetOpenAIKey(); got != tt.expected {
				t.Errorf("GetOpenAIKey() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetGeminiKey(t *testing.T) {
	tests := []struct {
		name      string
		gemini    string
		google    string
		configKey string
		expected  string
	}{
		{"gemini env wins", "gemini-key", "google-key", "config-key", "gemini-key"},
		{"google env", "", "google-key", "config-key", "google-key"},
		{"from config", "", "", "config-key", "config-key"},
		{"empty", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			t.Setenv("GEMINI_API_KEY", tt.gemini)
			t.Setenv("GOOGLE_API_KEY", tt.google)
			if tt.configKey != "" {
				viper.Set("ai.gemini_key", tt.configKey)
			}

			if got := GetGeminiKey(); got != tt.expected {
				t.Errorf("GetGeminiKey() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBindFlagsToViper(t *testing.T) {
	resetViper(t)

	cmd := &cobra.Command{}
	flags := NewFlags()
	setupFlags(cmd, flags)

	// Set some flag values
	cmd.PersistentFlags().Set("data-dir", "/test/data")
	cmd.PersistentFlags().Set("provider", "openai")
	cmd.PersistentFlags().Set("openai-tts-model", "tts-1-hd")
	cmd.PersistentFlags().Set("frame-samples", "1024")

	// Test that values are bound
	if got := viper.GetString("data.directory"); got != "/test/data" {
		t.Errorf("Expected data.directory to be /test/data, got %s", got)
	}
	if got := viper.GetString("ai.provider"); got != "openai" {
		t.Errorf("Expected ai.provider to be openai, got %s", got)
	}
	if got := viper.GetString("ai.openai_tts_model"); got != "tts-1-hd" {
		t.Errorf("Expected ai.openai_tts_model to be tts-1-hd, got %s", got)
	}
	if got := FrameSamples(); got != 1024 {
		t.Errorf("FrameSamples() = %d, want 1024", got)
	}
}

func TestAIConfig(t *testing.T) {
	resetViper(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	viper.Set("data.directory", "/data")
	viper.Set("ai.fallback", "openai")
	viper.Set("ai.tts_voice", "Puck")
	viper.Set("ai.video_poll_interval", "2s")
	viper.Set("ai.no_cache", true)

	config := AIConfig()

	if config.Provider != "gemini" {
		t.Errorf("Provider = %s, want default gemini", config.Provider)
	}
	if config.Fallback != "openai" {
		t.Errorf("Fallback = %s, want openai", config.Fallback)
	}
	if config.GeminiKey != "gemini-key" {
		t.Errorf("GeminiKey = %s, want gemini-key", config.GeminiKey)
	}
	if config.TTSVoice != "Puck" {
		t.Errorf("TTSVoice = %s, want Puck", config.TTSVoice)
	}
	if config.VideoPollInterval != 2*time.Second {
		t.Errorf("VideoPollInterval = %v, want 2s", config.VideoPollInterval)
	}
	if config.EnableCache {
		t.Error("EnableCache = true, want false with ai.no_cache")
	}
	if config.CacheDir != filepath.Join("/data", "speech_cache") {
		t.Errorf("CacheDir = %s", config.CacheDir)
	}
	if config.TextModel == "" || config.OpenAIImageModel == "" {
		t.Error("unset models should keep their defaults")
	}
}

func TestLiveConfig(t *testing.T) {
	resetViper(t)
	viper.Set("ai.live_voice", "Kore")

	config := LiveConfig()
	if config.Voice != "Kore" {
		t.Errorf("Voice = %s, want Kore", config.Voice)
	}
	if config.Model == "" || config.SystemInstruction == "" {
		t.Error("LiveConfig() lost its defaults")
	}
}
