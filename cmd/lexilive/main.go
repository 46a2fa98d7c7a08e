package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"codeberg.org/snonux/lexilive/internal/ai"
	"codeberg.org/snonux/lexilive/internal/cli"
	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/logging"
	"codeberg.org/snonux/lexilive/internal/media"
	"codeberg.org/snonux/lexilive/internal/metrics"
	"codeberg.org/snonux/lexilive/internal/processor"
	"codeberg.org/snonux/lexilive/internal/store"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// No subcommand launches the GUI
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, flags, func(a *app) error {
			return a.proc.RunGUI(a.store)
		})
	}
	addCommands(rootCmd, flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the services shared by all commands
type app struct {
	logger *zap.SugaredLogger
	store  *store.SQLiteStore
	media  *media.Store
	proc   *processor.Processor
}

// withApp wires the services, runs fn and releases them again
func withApp(cmd *cobra.Command, flags *cli.Flags, fn func(a *app) error) error {
	a, err := newApp(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newApp(ctx context.Context, flags *cli.Flags) (*app, error) {
	logger, err := logging.New(viper.GetString("log.level"), viper.GetString("log.format"))
	if err != nil {
		return nil, err
	}

	dataDir := cli.DataDir()
	db, err := store.Open(filepath.Join(dataDir, "lexilive.db"))
	if err != nil {
		return nil, err
	}

	mediaStore, err := media.New(media.DefaultOptions(filepath.Join(dataDir, "media")))
	if err != nil {
		db.Close()
		return nil, err
	}

	m := metrics.NewMetrics()

	aiConfig := cli.AIConfig()
	aiConfig.Logger = logger
	aiConfig.Metrics = m

	var provider vocab.AI
	provider, err = ai.NewProvider(ctx, aiConfig)
	if err != nil {
		// Saved words stay usable without a key; remote calls report why they fail
		fmt.Fprintf(os.Stderr, "Warning: AI features disabled: %v\n", err)
		provider = unavailableAI{err: err}
	}

	words := vocab.NewService(db, provider, mediaStore, vocab.WithLogger(logger))

	flags.FrameSamples = cli.FrameSamples()
	opts := []processor.Option{
		processor.WithLogger(logger),
		processor.WithMetrics(m),
	}
	if transport := liveTransport(ctx, aiConfig, logger); transport != nil {
		opts = append(opts, processor.WithLive(transport, cli.LiveConfig()))
	}

	return &app{
		logger: logger,
		store:  db,
		media:  mediaStore,
		proc:   processor.NewProcessor(flags, words, mediaStore, opts...),
	}, nil
}

// liveTransport returns the Gemini live transport, nil without a Gemini key
func liveTransport(ctx context.Context, config *ai.Config, logger *zap.SugaredLogger) live.Transport {
	if config.GeminiKey == "" {
		return nil
	}
	client, err := ai.NewGeminiClient(ctx, config.GeminiKey, config.GeminiBaseURL)
	if err != nil {
		logger.Warnw("live conversation disabled", "error", err)
		return nil
	}
	return live.NewGeminiTransport(client, logger)
}

// geminiClient returns a client for model listing, nil without a key
func geminiClient(ctx context.Context) (*genai.Client, error) {
	key := cli.GetGeminiKey()
	if key == "" {
		return nil, nil
	}
	return ai.NewGeminiClient(ctx, key, "")
}

// Close releases the database and flushes the logger
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	a.logger.Sync()
}

// unavailableAI stands in for the remote API when no provider could be set up
type unavailableAI struct {
	err error
}

func (u unavailableAI) LookupWord(context.Context, string, string) (vocab.WordRecord, error) {
	return vocab.WordRecord{}, u.err
}

func (u unavailableAI) Speak(context.Context, string) (vocab.Media, error) {
	return vocab.Media{}, u.err
}

func (u unavailableAI) AnalyzeImage(context.Context, []byte, string) ([]vocab.Label, error) {
	return nil, u.err
}

func (u unavailableAI) GenerateImage(context.Context, string) (vocab.Media, error) {
	return vocab.Media{}, u.err
}

func (u unavailableAI) GenerateVideo(context.Context, string) (vocab.Media, error) {
	return vocab.Media{}, u.err
}
