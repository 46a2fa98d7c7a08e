package anki

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// Card represents a single Anki flashcard
type Card struct {
	ID           string // Saved word id, keeps notes stable across exports
	Word         string
	Phonetic     string
	PartOfSpeech string
	DefinitionEN string
	DefinitionZH string
	Example      string
	ExampleZH    string
	AudioFile    string // Path to audio file
	ImageFile    string // Path to image file
}

// MediaResolver maps a stored media reference to a file on disk
type MediaResolver interface {
	Path(ref string) string
}

// CardFromSavedWord builds a card from a saved word. The image is resolved
// through media, which may be nil.
func CardFromSavedWord(w vocab.SavedWord, media MediaResolver) Card {
	card := Card{
		ID:           w.ID,
		Word:         w.Word,
		Phonetic:     w.Phonetic,
		PartOfSpeech: w.PartOfSpeech,
		DefinitionEN: w.DefinitionEN,
		DefinitionZH: w.DefinitionZH,
		Example:      w.Example,
		ExampleZH:    w.ExampleZH,
	}
	if media != nil && w.ImageRef != "" {
		card.ImageFile = media.Path(w.ImageRef)
	}
	return card
}

// GeneratorOptions configures the Anki export
type GeneratorOptions struct {
	OutputPath     string // Output CSV file path
	IncludeHeaders bool   // Include CSV headers
}

// DefaultGeneratorOptions returns sensible defaults
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		OutputPath:     "anki_import.csv",
		IncludeHeaders: true,
	}
}

// Generator creates Anki-compatible import files
type Generator struct {
	options *GeneratorOptions
	cards   []Card
}

// NewGenerator creates a new Anki generator
func NewGenerator(options *GeneratorOptions) *Generator {
	if options == nil {
		options = DefaultGeneratorOptions()
	}
	return &Generator{
		options: options,
		cards:   make([]Card, 0),
	}
}

// AddCard adds a card to the collection
func (g *Generator) AddCard(card Card) {
	g.cards = append(g.cards, card)
}

// AddSavedWords adds one card per saved word
func (g *Generator) AddSavedWords(words []vocab.SavedWord, media MediaResolver) {
	for _, w := range words {
		g.AddCard(CardFromSavedWord(w, media))
	}
}

// GetCards returns a slice of all cards for modification
func (g *Generator) GetCards() []Card {
	return g.cards
}

// GenerateCSV creates a CSV file for Anki import
func (g *Generator) GenerateCSV() error {
	// Create output file
	file, err := os.Create(g.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	// Create CSV writer
	writer := csv.NewWriter(file)

	// Write headers if requested
	if g.options.IncludeHeaders {
		headers := []string{"Word", "Phonetic", "Part of speech", "English", "Chinese", "Example", "Image", "Audio"}
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	// Write cards
	for _, card := range g.cards {
		record := []string{
			card.Word,
			card.Phonetic,
			card.PartOfSpeech,
			card.DefinitionEN,
			card.DefinitionZH,
			exampleField(card),
			formatImageField(filepath.Base(card.ImageFile), card.ImageFile != ""),
			formatAudioField(filepath.Base(card.AudioFile), card.AudioFile != ""),
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write card: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

// exampleField joins the example with its translation
func exampleField(card Card) string {
	if card.ExampleZH == "" {
		return card.Example
	}
	if card.Example == "" {
		return card.ExampleZH
	}
	return card.Example + "<br>" + card.ExampleZH
}

// formatAudioField formats the audio file reference for Anki
func formatAudioField(filename string, ok bool) string {
	if !ok {
		return ""
	}
	// Anki audio format: [sound:filename.wav]
	return fmt.Sprintf("[sound:%s]", filename)
}

// formatImageField formats image file reference for Anki
func formatImageField(filename string, ok bool) string {
	if !ok {
		return ""
	}
	return fmt.Sprintf(`<img src="%s">`, filename)
}

// GenerateAPKG creates a proper .apkg file for Anki import
func (g *Generator) GenerateAPKG(outputPath, deckName string) error {
	// Create APKG generator
	apkgGen := NewAPKGGenerator(deckName)

	// Add all cards
	for _, card := range g.cards {
		apkgGen.AddCard(card)
	}

	// Generate the .apkg file
	return apkgGen.GenerateAPKG(outputPath)
}

// Stats returns statistics about the card collection
func (g *Generator) Stats() (totalCards, withAudio, withImages int) {
	totalCards = len(g.cards)

	for _, card := range g.cards {
		if card.AudioFile != "" {
			withAudio++
		}
		if card.ImageFile != "" {
			withImages++
		}
	}

	return
}

// mediaName is the unique name of a card's media file inside a package
func mediaName(card Card, path string) string {
	prefix := card.ID
	if prefix == "" {
		prefix = card.Word
	}
	name := strings.ReplaceAll(prefix, string(filepath.Separator), "_")
	return fmt.Sprintf("%s_%s", name, filepath.Base(path))
}
