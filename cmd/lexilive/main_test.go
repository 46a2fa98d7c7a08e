package main

import (
	"context"
	"errors"
	"testing"

	"codeberg.org/snonux/lexilive/internal/cli"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

func TestAddCommands(t *testing.T) {
	flags := cli.NewFlags()
	root := cli.CreateRootCommand(flags)
	addCommands(root, flags)

	want := []string{
		"lookup", "save", "list", "delete", "review", "speak", "label",
		"imagine", "video", "live", "serve", "export", "import",
		"archive", "list-models",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("Subcommand %q not registered", name)
		}
	}

	export, _, _ := root.Find([]string{"export"})
	for _, name := range []string{"output", "csv", "deck-name", "audio"} {
		if export.Flags().Lookup(name) == nil {
			t.Errorf("export is missing --%s", name)
		}
	}
}

func TestUnavailableAI(t *testing.T) {
	cause := errors.New("no API key configured")
	var provider vocab.AI = unavailableAI{err: cause}
	ctx := context.Background()

	if _, err := provider.LookupWord(ctx, "apple", ""); !errors.Is(err, cause) {
		t.Errorf("LookupWord error = %v, want %v", err, cause)
	}
	if _, err := provider.Speak(ctx, "apple"); !errors.Is(err, cause) {
		t.Errorf("Speak error = %v, want %v", err, cause)
	}
	if _, err := provider.AnalyzeImage(ctx, []byte{1}, "image/png"); !errors.Is(err, cause) {
		t.Errorf("AnalyzeImage error = %v, want %v", err, cause)
	}
	if _, err := provider.GenerateImage(ctx, "an apple"); !errors.Is(err, cause) {
		t.Errorf("GenerateImage error = %v, want %v", err, cause)
	}
	if _, err := provider.GenerateVideo(ctx, "an apple"); !errors.Is(err, cause) {
		t.Errorf("GenerateVideo error = %v, want %v", err, cause)
	}
}
