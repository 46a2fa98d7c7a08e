package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/lexilive/internal/ai"
	"codeberg.org/snonux/lexilive/internal/archive"
	"codeberg.org/snonux/lexilive/internal/cli"
	"codeberg.org/snonux/lexilive/internal/models"
	"codeberg.org/snonux/lexilive/internal/processor"
)

// addCommands registers the subcommands on root
func addCommands(root *cobra.Command, flags *cli.Flags) {
	// run builds a RunE that wires the services before calling fn
	run := func(fn func(cmd *cobra.Command, p *processor.Processor, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(a *app) error {
				return fn(cmd, a.proc, args)
			})
		}
	}

	lookupCmd := &cobra.Command{
		Use:   "lookup <word>",
		Short: "Look up a word without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.Lookup(cmd.Context(), args[0])
		}),
	}

	saveCmd := &cobra.Command{
		Use:   "save <word>...",
		Short: "Look up words and add them to the saved list",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			for _, word := range args {
				if err := p.Save(cmd.Context(), word); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the saved words, newest first",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.List(cmd.Context())
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <word|id>",
		Short: "Remove a saved word and its media",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.Delete(cmd.Context(), args[0])
		}),
	}

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Review the saved words as flashcards",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.Review(cmd.Context())
		}),
	}
	reviewCmd.Flags().BoolVar(&flags.Shuffle, "shuffle", false, "Shuffle the cards")

	speakCmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Pronounce a word or sentence",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.Speak(cmd.Context(), strings.Join(args, " "))
		}),
	}
	speakCmd.Flags().BoolVar(&flags.NoPlay, "no-play", false, "Do not play the audio")
	speakCmd.Flags().StringVarP(&flags.OutputFile, "output", "o", "", "Write the audio to this file")

	labelCmd := &cobra.Command{
		Use:   "label <image>",
		Short: "Name the objects in a photo in English and Chinese",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.Label(cmd.Context(), args[0])
		}),
	}

	imagineCmd := &cobra.Command{
		Use:   "imagine <word|id>",
		Short: "Generate an illustration for a saved word",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.GenerateImage(cmd.Context(), args[0])
		}),
	}

	videoCmd := &cobra.Command{
		Use:   "video <word|id>",
		Short: "Generate a short video for a saved word",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.GenerateVideo(cmd.Context(), args[0])
		}),
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "Talk with the live AI tutor",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.RunLive(cmd.Context())
		}),
	}
	liveCmd.Flags().BoolVar(&flags.Practice, "practice", false, "Ask the tutor to practise the saved words")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the live relay",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.RunServer(cmd.Context(), flags.Addr)
		}),
	}
	serveCmd.Flags().StringVar(&flags.Addr, "addr", flags.Addr, "Listen address")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the saved words for Anki",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.ExportAnki(cmd.Context())
		}),
	}
	exportCmd.Flags().StringVarP(&flags.OutputFile, "output", "o", "", "Output file (default lexilive.apkg or lexilive.csv)")
	exportCmd.Flags().BoolVar(&flags.AnkiCSV, "csv", false, "Write CSV instead of an APKG package")
	exportCmd.Flags().StringVar(&flags.DeckName, "deck-name", flags.DeckName, "Anki deck name")
	exportCmd.Flags().BoolVar(&flags.AnkiAudio, "audio", false, "Synthesize a pronunciation for every card")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Look up and save every word of a text file",
		Long:  "Reads one word per line. Blank lines and lines starting with # are skipped, text after '=' names the meaning you want, e.g. \"bank = the side of a river\".",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, p *processor.Processor, args []string) error {
			return p.Import(cmd.Context(), args[0])
		}),
	}

	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Move the data directory aside and start with an empty list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archived, err := archive.ArchiveData(cli.DataDir())
			if err != nil {
				return fmt.Errorf("failed to archive data: %w", err)
			}
			fmt.Printf("Archived data to %s\n", archived)
			return nil
		},
	}

	listModelsCmd := &cobra.Command{
		Use:   "list-models",
		Short: "List the models available to the configured API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gemini, err := geminiClient(cmd.Context())
			if err != nil {
				return err
			}
			var lister *models.Lister
			if key := cli.GetOpenAIKey(); key != "" {
				lister = models.NewLister(gemini, ai.NewOpenAIClient(key, ""), nil)
			} else {
				lister = models.NewLister(gemini, nil, nil)
			}

			found, err := lister.List(cmd.Context())
			if err != nil {
				return err
			}
			models.Print(os.Stdout, found)
			return nil
		},
	}

	root.AddCommand(
		lookupCmd, saveCmd, listCmd, deleteCmd, reviewCmd,
		speakCmd, labelCmd, imagineCmd, videoCmd,
		liveCmd, serveCmd, exportCmd, importCmd,
		archiveCmd, listModelsCmd,
	)
}
