package processor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/anki"
	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/batch"
	"codeberg.org/snonux/lexilive/internal/cli"
	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/media"
	"codeberg.org/snonux/lexilive/internal/metrics"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// maxPracticeWords limits how many saved words go into a practice instruction
const maxPracticeWords = 20

// Processor runs the command line operations on top of the word service
type Processor struct {
	flags   *cli.Flags
	words   *vocab.Service
	media   *media.Store
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	rnd     *rand.Rand
	in      io.Reader

	transport    live.Transport
	liveConfig   live.Config
	frameSamples int
	player       audioPlayer
	recorder     recorder
}

// audioPlayer plays encoded audio such as WAV or MP3 files
type audioPlayer interface {
	PlayBytes(ctx context.Context, data []byte, ext string) error
}

// recorder captures microphone PCM
type recorder interface {
	Start(ctx context.Context) (io.ReadCloser, error)
	Stop()
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorded by live sessions
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithLive enables the live conversation commands
func WithLive(transport live.Transport, cfg live.Config) Option {
	return func(p *Processor) {
		p.transport = transport
		p.liveConfig = cfg
	}
}

// WithInput sets where interactive commands read from, stdin by default
func WithInput(in io.Reader) Option {
	return func(p *Processor) {
		p.in = in
	}
}

// WithRand sets the source used to shuffle review decks
func WithRand(rnd *rand.Rand) Option {
	return func(p *Processor) {
		p.rnd = rnd
	}
}

// NewProcessor creates a new processor
func NewProcessor(flags *cli.Flags, words *vocab.Service, mediaStore *media.Store, opts ...Option) *Processor {
	p := &Processor{
		flags:        flags,
		words:        words,
		media:        mediaStore,
		logger:       zap.NewNop().Sugar(),
		in:           os.Stdin,
		liveConfig:   live.DefaultConfig(),
		frameSamples: flags.FrameSamples,
		player:       audio.NewPlayer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.recorder == nil {
		p.recorder = audio.NewRecorder(p.liveConfig.InputFormat)
	}
	return p
}

// Lookup prints the definition of word without saving it
func (p *Processor) Lookup(ctx context.Context, word string) error {
	record, err := p.words.Lookup(ctx, word)
	if err != nil {
		return err
	}
	printRecord(record)
	return nil
}

// Save looks word up and adds it to the saved list
func (p *Processor) Save(ctx context.Context, word string) error {
	record, err := p.words.Lookup(ctx, word)
	if err != nil {
		return err
	}

	saved, created, err := p.words.Save(ctx, record)
	if err != nil {
		return err
	}

	printRecord(saved.WordRecord)
	if created {
		fmt.Printf("\nSaved '%s' (%s)\n", saved.Word, saved.ID)
	} else {
		fmt.Printf("\n'%s' is already saved (%s)\n", saved.Word, saved.ID)
	}
	return nil
}

// List prints the saved words, newest first
func (p *Processor) List(ctx context.Context) error {
	words, err := p.words.List(ctx)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		fmt.Println("No saved words yet")
		return nil
	}

	for i, w := range words {
		fmt.Printf("%3d. %-20s %-16s %s\n", i+1, w.Word, w.DefinitionZH, w.ID)
	}
	fmt.Printf("\n%d saved words\n", len(words))
	return nil
}

// Delete removes a saved word given by id or by the word itself
func (p *Processor) Delete(ctx context.Context, ref string) error {
	w, err := p.find(ctx, ref)
	if err != nil {
		return err
	}
	if err := p.words.Delete(ctx, w.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted '%s'\n", w.Word)
	return nil
}

// find resolves an id or a word (case-insensitive) to a saved word
func (p *Processor) find(ctx context.Context, ref string) (vocab.SavedWord, error) {
	ref = strings.TrimSpace(ref)
	words, err := p.words.List(ctx)
	if err != nil {
		return vocab.SavedWord{}, err
	}
	for _, w := range words {
		if w.ID == ref || strings.EqualFold(w.Word, ref) {
			return w, nil
		}
	}
	return vocab.SavedWord{}, fmt.Errorf("%w: %s", vocab.ErrNotFound, ref)
}

// Review walks through the saved words as flashcards. Enter flips and
// advances, b goes back, q quits.
func (p *Processor) Review(ctx context.Context) error {
	words, err := p.words.List(ctx)
	if err != nil {
		return err
	}
	deck := vocab.NewDeck(words, p.flags.Shuffle, p.rnd)
	if deck.Len() == 0 {
		fmt.Println("No saved words to review")
		return nil
	}

	fmt.Printf("Reviewing %d cards. Enter: flip/next, b: back, q: quit\n", deck.Len())

	scanner := bufio.NewScanner(p.in)
	seen := 0
	for {
		card, _ := deck.Current()
		if deck.Flipped() {
			printBack(card.WordRecord)
		} else {
			fmt.Printf("\n[%d/%d] %s\n", deck.Index()+1, deck.Len(), card.Word)
			if card.Phonetic != "" {
				fmt.Printf("        %s\n", card.Phonetic)
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if !scanner.Scan() {
			break
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "q":
			fmt.Printf("Reviewed %d of %d cards\n", seen, deck.Len())
			return nil
		case "b":
			deck.Prev()
		default:
			if !deck.Flipped() {
				deck.Flip()
				continue
			}
			seen++
			if deck.Index() == deck.Len()-1 {
				fmt.Printf("\nDone! Reviewed %d cards\n", seen)
				return nil
			}
			deck.Next()
		}
	}

	return scanner.Err()
}

// Speak synthesizes text and plays it, or writes it to the output file
func (p *Processor) Speak(ctx context.Context, text string) error {
	speech, err := p.words.Speak(ctx, text)
	if err != nil {
		return err
	}

	ext := media.Extension(speech.MIMEType, "speech")
	if p.flags.OutputFile != "" {
		if err := os.WriteFile(p.flags.OutputFile, speech.Data, 0644); err != nil {
			return fmt.Errorf("failed to write audio file: %w", err)
		}
		fmt.Printf("Audio saved to %s\n", p.flags.OutputFile)
	}
	if p.flags.NoPlay {
		return nil
	}
	return p.player.PlayBytes(ctx, speech.Data, ext)
}

// Label identifies the objects in an image file
func (p *Processor) Label(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	labels, err := p.words.Label(ctx, data, mimeType)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		fmt.Println("Nothing recognised")
		return nil
	}

	for _, l := range labels {
		fmt.Printf("  %-20s %-10s %3.0f%%\n", l.Name, l.NameZH, l.Confidence*100)
	}
	return nil
}

// GenerateImage creates the illustration of a saved word
func (p *Processor) GenerateImage(ctx context.Context, ref string) error {
	return p.generate(ctx, ref, vocab.KindImage)
}

// GenerateVideo creates the short clip of a saved word
func (p *Processor) GenerateVideo(ctx context.Context, ref string) error {
	return p.generate(ctx, ref, vocab.KindVideo)
}

func (p *Processor) generate(ctx context.Context, ref, kind string) error {
	w, err := p.find(ctx, ref)
	if err != nil {
		return err
	}

	fmt.Printf("Generating %s for '%s'...\n", kind, w.Word)
	if kind == vocab.KindVideo {
		fmt.Println("  Video generation can take a few minutes")
		w, err = p.words.GenerateVideo(ctx, w.ID)
	} else {
		w, err = p.words.GenerateImage(ctx, w.ID)
	}
	if err != nil {
		return err
	}

	ref = w.ImageRef
	if kind == vocab.KindVideo {
		ref = w.VideoRef
	}
	fmt.Printf("  Saved to %s\n", p.media.Path(ref))
	return nil
}

// Import looks up and saves every word of a batch file
func (p *Processor) Import(ctx context.Context, file string) error {
	entries, err := batch.ReadBatchFile(file)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No words found in", file)
		return nil
	}

	result, err := p.words.Import(ctx, entries, func(i int, word string, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing '%s': %v\n", word, err)
			return
		}
		fmt.Printf("Imported %d/%d: %s\n", i+1, len(entries), word)
	})
	if errors.Is(err, context.Canceled) {
		return err
	}

	// Print summary
	fmt.Printf("\n=== Import Summary ===\n")
	fmt.Printf("Total words: %d\n", len(entries))
	fmt.Printf("Saved: %d\n", result.Saved)
	fmt.Printf("Skipped (already saved): %d\n", result.Existing)
	if result.Failed > 0 {
		fmt.Printf("Errors: %d\n", result.Failed)
	}
	fmt.Printf("======================\n")

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d words failed to import", result.Failed, len(entries))
	}
	return nil
}

// ExportAnki writes the saved list as an Anki package or CSV file
func (p *Processor) ExportAnki(ctx context.Context) error {
	words, err := p.words.List(ctx)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("no saved words to export")
	}

	outputPath := p.flags.OutputFile
	if outputPath == "" {
		outputPath = "lexilive.apkg"
		if p.flags.AnkiCSV {
			outputPath = "lexilive.csv"
		}
	}

	gen := anki.NewGenerator(&anki.GeneratorOptions{
		OutputPath:     outputPath,
		IncludeHeaders: true,
	})
	gen.AddSavedWords(words, p.media)

	if p.flags.AnkiAudio {
		tempDir, err := os.MkdirTemp("", "lexilive_speech_*")
		if err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
		defer os.RemoveAll(tempDir)

		if err := p.synthesizeCards(ctx, gen.GetCards(), tempDir); err != nil {
			return err
		}
	}

	if p.flags.AnkiCSV {
		err = gen.GenerateCSV()
	} else {
		err = gen.GenerateAPKG(outputPath, p.flags.DeckName)
	}
	if err != nil {
		return fmt.Errorf("failed to generate Anki export: %w", err)
	}

	total, withAudio, withImages := gen.Stats()
	fmt.Printf("Exported %d cards (%d with audio, %d with images) to %s\n", total, withAudio, withImages, outputPath)
	return nil
}

// synthesizeCards speaks every card's word into dir and attaches the file.
// A failed word keeps its card without audio.
func (p *Processor) synthesizeCards(ctx context.Context, cards []anki.Card, dir string) error {
	for i := range cards {
		if err := ctx.Err(); err != nil {
			return err
		}

		speech, err := p.words.Speak(ctx, cards[i].Word)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: no audio for '%s': %v\n", cards[i].Word, err)
			continue
		}

		path := filepath.Join(dir, fmt.Sprintf("speech_%d%s", i, media.Extension(speech.MIMEType, "speech")))
		if err := os.WriteFile(path, speech.Data, 0644); err != nil {
			return fmt.Errorf("failed to write audio file: %w", err)
		}
		cards[i].AudioFile = path
		fmt.Printf("  Synthesized audio %d/%d: %s\n", i+1, len(cards), cards[i].Word)
	}
	return nil
}

func printRecord(r vocab.WordRecord) {
	fmt.Printf("\n%s", r.Word)
	if r.Phonetic != "" {
		fmt.Printf("  %s", r.Phonetic)
	}
	fmt.Println()
	printBack(r)
}

func printBack(r vocab.WordRecord) {
	if r.PartOfSpeech != "" {
		fmt.Printf("  (%s)\n", r.PartOfSpeech)
	}
	if r.DefinitionEN != "" {
		fmt.Printf("  EN: %s\n", r.DefinitionEN)
	}
	if r.DefinitionZH != "" {
		fmt.Printf("  ZH: %s\n", r.DefinitionZH)
	}
	if r.Example != "" {
		fmt.Printf("  e.g. %s\n", r.Example)
	}
	if r.ExampleZH != "" {
		fmt.Printf("       %s\n", r.ExampleZH)
	}
}
