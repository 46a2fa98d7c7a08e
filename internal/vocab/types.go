package vocab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Media kinds stored alongside a saved word
const (
	KindImage = "image"
	KindVideo = "video"
)

var (
	// ErrNotFound is returned when a saved word id is unknown
	ErrNotFound = errors.New("word not found")
	// ErrInvalidWord is returned when user input cannot be looked up
	ErrInvalidWord = errors.New("invalid word")
	// ErrInvalidImage is returned when an image for labeling is empty or not an image
	ErrInvalidImage = errors.New("invalid image")
	// ErrCorrupt is returned by stores whose persisted list cannot be decoded
	ErrCorrupt = errors.New("stored word list is corrupt")
)

// WordRecord is the structured definition returned by the remote lookup
type WordRecord struct {
	Word         string `json:"word"`
	Phonetic     string `json:"phonetic"`
	PartOfSpeech string `json:"partOfSpeech"`
	DefinitionEN string `json:"definitionEn"`
	DefinitionZH string `json:"definitionZh"`
	Example      string `json:"example"`
	ExampleZH    string `json:"exampleZh,omitempty"`
}

// Validate checks that the record carries at least a word and one meaning
func (r WordRecord) Validate() error {
	if strings.TrimSpace(r.Word) == "" {
		return fmt.Errorf("%w: record has no word", ErrInvalidWord)
	}
	if strings.TrimSpace(r.DefinitionEN) == "" && strings.TrimSpace(r.DefinitionZH) == "" {
		return fmt.Errorf("%w: record for %q has no definition", ErrInvalidWord, r.Word)
	}
	return nil
}

// SavedWord is a word record kept in the local list
type SavedWord struct {
	ID string `json:"id"`
	WordRecord
	SavedAt  time.Time `json:"savedAt"`
	ImageRef string    `json:"imageRef,omitempty"`
	VideoRef string    `json:"videoRef,omitempty"`
}

// Label is one entry of an image analysis result
type Label struct {
	Name       string  `json:"name"`
	NameZH     string  `json:"nameZh"`
	Confidence float64 `json:"confidence"`
}

// Media is a generated binary payload (speech, image or video)
type Media struct {
	Data     []byte
	MIMEType string
}

// Store persists the saved word list as a whole
type Store interface {
	Load(ctx context.Context) ([]SavedWord, error)
	Save(ctx context.Context, words []SavedWord) error
}

// AI is the remote model API used by the Service
type AI interface {
	LookupWord(ctx context.Context, word, hint string) (WordRecord, error)
	Speak(ctx context.Context, text string) (Media, error)
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) ([]Label, error)
	GenerateImage(ctx context.Context, prompt string) (Media, error)
	GenerateVideo(ctx context.Context, prompt string) (Media, error)
}

// MediaStore keeps generated media files for saved words
type MediaStore interface {
	// Put stores data for a word and returns a reference to persist on the SavedWord
	Put(id, kind string, m Media) (string, error)
	// Remove deletes all media for a word
	Remove(id string) error
}
