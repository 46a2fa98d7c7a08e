package processor

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/cli"
	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/media"
	"codeberg.org/snonux/lexilive/internal/store"
	"codeberg.org/snonux/lexilive/internal/testutil"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

type fakePlayer struct {
	data []byte
	ext  string
}

func (f *fakePlayer) PlayBytes(ctx context.Context, data []byte, ext string) error {
	f.data, f.ext = data, ext
	return nil
}

type noRecorder struct{}

func (noRecorder) Start(ctx context.Context) (io.ReadCloser, error) { return nil, audio.ErrNoRecorder }
func (noRecorder) Stop()                                            {}

type nullSink struct{}

func (nullSink) Write(p []byte) (int, error) { return len(p), nil }
func (nullSink) Reset() error                { return nil }

type fixture struct {
	p      *Processor
	ai     *testutil.MockAI
	media  *media.Store
	player *fakePlayer
}

func newFixture(t *testing.T, flags *cli.Flags, opts ...Option) *fixture {
	t.Helper()

	mediaStore, err := media.New(media.DefaultOptions(filepath.Join(t.TempDir(), "media")))
	if err != nil {
		t.Fatalf("Failed to create media store: %v", err)
	}
	ai := testutil.NewMockAI()
	words := vocab.NewService(store.NewMemoryStore(), ai, mediaStore)

	p := NewProcessor(flags, words, mediaStore, opts...)
	player := &fakePlayer{}
	p.player = player
	p.recorder = noRecorder{}

	return &fixture{p: p, ai: ai, media: mediaStore, player: player}
}

func mustSave(t *testing.T, p *Processor, words ...string) {
	t.Helper()
	testutil.CaptureOutput(t, func() {
		for _, w := range words {
			if err := p.Save(context.Background(), w); err != nil {
				t.Fatalf("Save(%s) failed: %v", w, err)
			}
		}
	})
}

func TestNewProcessor(t *testing.T) {
	flags := cli.NewFlags()
	f := newFixture(t, flags)

	if f.p.flags != flags {
		t.Error("Processor flags not set correctly")
	}
	if f.p.frameSamples != flags.FrameSamples {
		t.Errorf("frameSamples = %d, want %d", f.p.frameSamples, flags.FrameSamples)
	}
	if f.p.transport != nil {
		t.Error("Live transport should be unset by default")
	}
}

func TestLookup(t *testing.T) {
	f := newFixture(t, cli.NewFlags())

	stdout, _ := testutil.CaptureOutput(t, func() {
		if err := f.p.Lookup(context.Background(), "apple"); err != nil {
			t.Errorf("Lookup failed: %v", err)
		}
	})
	if !strings.Contains(stdout, "EN: a test definition of apple") || !strings.Contains(stdout, "ZH: 测试释义") {
		t.Errorf("Unexpected lookup output: %q", stdout)
	}

	// Nothing is saved by a lookup
	words, _ := f.p.words.List(context.Background())
	if len(words) != 0 {
		t.Errorf("Lookup saved %d words", len(words))
	}

	if err := f.p.Lookup(context.Background(), "   "); !errors.Is(err, vocab.ErrInvalidWord) {
		t.Errorf("Expected ErrInvalidWord for blank input, got %v", err)
	}
}

func TestSaveAndList(t *testing.T) {
	f := newFixture(t, cli.NewFlags())

	stdout, _ := testutil.CaptureOutput(t, func() {
		f.p.Save(context.Background(), "apple")
		f.p.Save(context.Background(), "Apple")
		f.p.Save(context.Background(), "river")
	})
	if !strings.Contains(stdout, "Saved 'apple'") {
		t.Errorf("Missing save confirmation: %q", stdout)
	}
	if !strings.Contains(stdout, "is already saved") {
		t.Errorf("Duplicate was not reported: %q", stdout)
	}

	stdout, _ = testutil.CaptureOutput(t, func() {
		if err := f.p.List(context.Background()); err != nil {
			t.Errorf("List failed: %v", err)
		}
	})
	// Newest first
	if strings.Index(stdout, "river") > strings.Index(stdout, "apple") {
		t.Errorf("List is not newest first: %q", stdout)
	}
	if !strings.Contains(stdout, "2 saved words") {
		t.Errorf("Missing count: %q", stdout)
	}
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t, cli.NewFlags())
	stdout, _ := testutil.CaptureOutput(t, func() {
		f.p.List(context.Background())
	})
	if !strings.Contains(stdout, "No saved words yet") {
		t.Errorf("Unexpected output: %q", stdout)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t, cli.NewFlags())
	mustSave(t, f.p, "apple", "river")

	testutil.CaptureOutput(t, func() {
		if err := f.p.Delete(context.Background(), "APPLE"); err != nil {
			t.Errorf("Delete by word failed: %v", err)
		}
	})

	words, _ := f.p.words.List(context.Background())
	if len(words) != 1 || words[0].Word != "river" {
		t.Fatalf("Unexpected words after delete: %+v", words)
	}

	testutil.CaptureOutput(t, func() {
		if err := f.p.Delete(context.Background(), words[0].ID); err != nil {
			t.Errorf("Delete by id failed: %v", err)
		}
	})

	if err := f.p.Delete(context.Background(), "missing"); !errors.Is(err, vocab.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReview(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), WithInput(strings.NewReader("\n\n\n\n")))
	mustSave(t, f.p, "apple", "river")

	stdout, _ := testutil.CaptureOutput(t, func() {
		if err := f.p.Review(context.Background()); err != nil {
			t.Errorf("Review failed: %v", err)
		}
	})

	for _, want := range []string{"[1/2] river", "EN: a test definition of river", "[2/2] apple", "Done! Reviewed 2 cards"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("Review output missing %q: %q", want, stdout)
		}
	}
}

func TestReviewQuitAndBack(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), WithInput(strings.NewReader("\n\nb\nq\n")))
	mustSave(t, f.p, "apple", "river")

	stdout, _ := testutil.CaptureOutput(t, func() {
		if err := f.p.Review(context.Background()); err != nil {
			t.Errorf("Review failed: %v", err)
		}
	})

	if strings.Count(stdout, "[1/2] river") != 2 {
		t.Errorf("Going back should show the first card again: %q", stdout)
	}
	if !strings.Contains(stdout, "Reviewed 1 of 2 cards") {
		t.Errorf("Missing quit summary: %q", stdout)
	}
}

func TestReviewEmpty(t *testing.T) {
	f := newFixture(t, cli.NewFlags(), WithInput(strings.NewReader("")))
	stdout, _ := testutil.CaptureOutput(t, func() {
		f.p.Review(context.Background())
	})
	if !strings.Contains(stdout, "No saved words to review") {
		t.Errorf("Unexpected output: %q", stdout)
	}
}

func TestSpeak(t *testing.T) {
	flags := cli.NewFlags()
	f := newFixture(t, flags)

	if err := f.p.Speak(context.Background(), "Hello there"); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if f.player.ext != ".wav" || len(f.player.data) == 0 {
		t.Errorf("Player got ext %q and %d bytes", f.player.ext, len(f.player.data))
	}

	// NoPlay with an output file only writes the file
	flags.NoPlay = true
	flags.OutputFile = filepath.Join(t.TempDir(), "hello.wav")
	f.player.data = nil

	testutil.CaptureOutput(t, func() {
		if err := f.p.Speak(context.Background(), "Hello there"); err != nil {
			t.Errorf("Speak failed: %v", err)
		}
	})
	if f.player.data != nil {
		t.Error("Audio was played despite NoPlay")
	}
	testutil.AssertFileContent(t, flags.OutputFile, f.ai.SpeechData)
}

func TestLabel(t *testing.T) {
	f := newFixture(t, cli.NewFlags())
	path := filepath.Join(t.TempDir(), "photo.png")
	testutil.CreateTestFile(t, path, testutil.TestDataGenerator{}.GenerateImageData())

	stdout, _ := testutil.CaptureOutput(t, func() {
		if err := f.p.Label(context.Background(), path); err != nil {
			t.Errorf("Label failed: %v", err)
		}
	})
	if !strings.Contains(stdout, "苹果") || !strings.Contains(stdout, "97%") {
		t.Errorf("Unexpected label output: %q", stdout)
	}
	if f.ai.Calls[0] != "AnalyzeImage:image/png:8" {
		t.Errorf("Unexpected call: %v", f.ai.Calls)
	}

	if err := f.p.Label(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestGenerateImageAndVideo(t *testing.T) {
	f := newFixture(t, cli.NewFlags())
	mustSave(t, f.p, "apple")

	stdout, _ := testutil.CaptureOutput(t, func() {
		if err := f.p.GenerateImage(context.Background(), "apple"); err != nil {
			t.Errorf("GenerateImage failed: %v", err)
		}
		if err := f.p.GenerateVideo(context.Background(), "apple"); err != nil {
			t.Errorf("GenerateVideo failed: %v", err)
		}
	})

	if !strings.Contains(stdout, f.media.Root()) {
		t.Errorf("Output does not name the media file: %q", stdout)
	}

	words, _ := f.p.words.List(context.Background())
	testutil.AssertFileExists(t, f.media.Path(words[0].ImageRef))
	testutil.AssertFileExists(t, f.media.Path(words[0].VideoRef))

	if err := f.p.GenerateImage(context.Background(), "river"); !errors.Is(err, vocab.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unsaved word, got %v", err)
	}
}

func TestImport(t *testing.T) {
	f := newFixture(t, cli.NewFlags())
	mustSave(t, f.p, "river")

	file := filepath.Join(t.TempDir(), "words.txt")
	testutil.CreateTestFile(t, file, []byte("# fruit\napple = the fruit\n\nriver\nApple\nquiet\n"))

	stdout, _ := testutil.CaptureOutput(t, func() {
		if err := f.p.Import(context.Background(), file); err != nil {
			t.Errorf("Import failed: %v", err)
		}
	})

	for _, want := range []string{"Imported 1/3: apple", "Total words: 3", "Saved: 2", "Skipped (already saved): 1"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("Import output missing %q: %q", want, stdout)
		}
	}

	// The note after '=' reaches the lookup as the intended sense
	found := false
	for _, call := range f.ai.Calls {
		if call == "LookupWord:apple|the fruit" {
			found = true
		}
	}
	if !found {
		t.Errorf("Note was not passed to the lookup: %v", f.ai.Calls)
	}
}

func TestImportFailures(t *testing.T) {
	f := newFixture(t, cli.NewFlags())
	f.ai.Errors["LookupWord"] = errors.New("quota exceeded")

	file := filepath.Join(t.TempDir(), "words.txt")
	testutil.CreateTestFile(t, file, []byte("apple\nriver\n"))

	var err error
	stdout, stderr := testutil.CaptureOutput(t, func() {
		err = f.p.Import(context.Background(), file)
	})
	if err == nil || !strings.Contains(err.Error(), "2 of 2 words failed") {
		t.Errorf("Expected failure summary error, got %v", err)
	}
	if !strings.Contains(stdout, "Errors: 2") || !strings.Contains(stderr, "quota exceeded") {
		t.Errorf("Failures not reported: %q / %q", stdout, stderr)
	}
}

func TestExportAnkiCSVWithAudio(t *testing.T) {
	flags := cli.NewFlags()
	flags.AnkiCSV = true
	flags.AnkiAudio = true
	flags.OutputFile = filepath.Join(t.TempDir(), "deck.csv")

	f := newFixture(t, flags)
	mustSave(t, f.p, "apple", "river")

	stdout, _ := testutil.CaptureOutput(t, func() {
		if err := f.p.ExportAnki(context.Background()); err != nil {
			t.Errorf("ExportAnki failed: %v", err)
		}
	})

	if !strings.Contains(stdout, "Exported 2 cards (2 with audio, 0 with images)") {
		t.Errorf("Unexpected export summary: %q", stdout)
	}
	testutil.AssertFileContains(t, flags.OutputFile, "[sound:speech_0.wav]")
	testutil.AssertFileContains(t, flags.OutputFile, "river")
	if f.ai.CallCount("Speak") != 2 {
		t.Errorf("Expected 2 speech calls, got %d", f.ai.CallCount("Speak"))
	}
}

func TestExportAnkiAPKG(t *testing.T) {
	flags := cli.NewFlags()
	flags.OutputFile = filepath.Join(t.TempDir(), "deck.apkg")

	f := newFixture(t, flags)
	mustSave(t, f.p, "apple")

	testutil.CaptureOutput(t, func() {
		if err := f.p.ExportAnki(context.Background()); err != nil {
			t.Errorf("ExportAnki failed: %v", err)
		}
	})
	testutil.AssertFileExists(t, flags.OutputFile)
	if f.ai.CallCount("Speak") != 0 {
		t.Error("Speech synthesized without --audio")
	}
}

func TestExportAnkiEmpty(t *testing.T) {
	f := newFixture(t, cli.NewFlags())
	if err := f.p.ExportAnki(context.Background()); err == nil {
		t.Error("Expected error when nothing is saved")
	}
}

func TestRunLiveWithoutTransport(t *testing.T) {
	f := newFixture(t, cli.NewFlags())
	if err := f.p.runLive(context.Background(), nullSink{}); err == nil {
		t.Error("Expected error without a live transport")
	}
}

func TestRunLiveTextOnly(t *testing.T) {
	flags := cli.NewFlags()
	flags.Practice = true

	transport := testutil.NewMockTransport()
	f := newFixture(t, flags,
		WithLive(transport, liveConfigForTest()),
		WithInput(strings.NewReader("hello\n")),
	)
	mustSave(t, f.p, "apple")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- f.p.runLive(ctx, nullSink{})
	}()

	deadline := time.Now().Add(3 * time.Second)
	for transport.Conn.TextCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Typed line was never sent")
		}
		time.Sleep(10 * time.Millisecond)
	}
	transport.Conn.EndStream()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("runLive failed: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("runLive did not return after the server ended the session")
	}

	if !strings.Contains(transport.LastConfig.SystemInstruction, "apple") {
		t.Errorf("Practice instruction does not list saved words: %q", transport.LastConfig.SystemInstruction)
	}
	if !transport.Conn.IsClosed() {
		t.Error("Connection left open")
	}
}

func TestSpeaker(t *testing.T) {
	if speaker("user") != "You" || speaker("model") != "Tutor" {
		t.Error("Unexpected speaker names")
	}
}

func liveConfigForTest() live.Config {
	cfg := live.DefaultConfig()
	cfg.SystemInstruction = "Be kind."
	return cfg
}
