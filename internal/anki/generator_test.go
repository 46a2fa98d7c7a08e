package anki

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

type dirResolver string

func (d dirResolver) Path(ref string) string {
	return filepath.Join(string(d), ref)
}

func savedWord(id, word string) vocab.SavedWord {
	return vocab.SavedWord{
		ID: id,
		WordRecord: vocab.WordRecord{
			Word:         word,
			Phonetic:     "/ˈæp.əl/",
			PartOfSpeech: "noun",
			DefinitionEN: "a round fruit",
			DefinitionZH: "苹果",
			Example:      "I ate an apple.",
			ExampleZH:    "我吃了一个苹果。",
		},
		SavedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewGenerator(t *testing.T) {
	// Test with nil options
	gen := NewGenerator(nil)
	if gen.options == nil {
		t.Fatal("Generator options should not be nil")
	}
	if gen.options.OutputPath != "anki_import.csv" || !gen.options.IncludeHeaders {
		t.Errorf("Unexpected default options: %+v", gen.options)
	}

	// Test with custom options
	gen = NewGenerator(&GeneratorOptions{OutputPath: "custom.csv"})
	if gen.options.OutputPath != "custom.csv" {
		t.Errorf("Expected custom output path, got '%s'", gen.options.OutputPath)
	}
}

func TestCardFromSavedWord(t *testing.T) {
	w := savedWord("1700000000000_1f3870be", "apple")
	w.ImageRef = "1700000000000_1f3870be/image.png"

	card := CardFromSavedWord(w, dirResolver("/data/media"))
	if card.ID != w.ID || card.Word != "apple" || card.DefinitionZH != "苹果" {
		t.Errorf("Unexpected card: %+v", card)
	}
	if card.ImageFile != "/data/media/1700000000000_1f3870be/image.png" {
		t.Errorf("ImageFile = %q", card.ImageFile)
	}

	// Without a resolver the image is dropped
	if card := CardFromSavedWord(w, nil); card.ImageFile != "" {
		t.Errorf("Expected no image without resolver, got %q", card.ImageFile)
	}
}

func TestAddSavedWords(t *testing.T) {
	gen := NewGenerator(nil)
	gen.AddSavedWords([]vocab.SavedWord{savedWord("a", "apple"), savedWord("b", "banana")}, nil)

	cards := gen.GetCards()
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(cards))
	}
	if cards[1].Word != "banana" {
		t.Errorf("Expected second card 'banana', got '%s'", cards[1].Word)
	}
}

func TestGenerateCSV(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "test.csv")
	gen := NewGenerator(&GeneratorOptions{OutputPath: outputPath, IncludeHeaders: true})

	withMedia := savedWord("a", "apple")
	card := CardFromSavedWord(withMedia, nil)
	card.ImageFile = "/media/a/image.png"
	card.AudioFile = "/tmp/a.wav"
	gen.AddCard(card)

	plain := CardFromSavedWord(savedWord("b", "banana"), nil)
	plain.ExampleZH = ""
	gen.AddCard(plain)

	if err := gen.GenerateCSV(); err != nil {
		t.Fatalf("GenerateCSV failed: %v", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records (header + 2 cards), got %d", len(records))
	}

	if records[0][0] != "Word" || records[0][4] != "Chinese" || records[0][7] != "Audio" {
		t.Errorf("Unexpected headers: %v", records[0])
	}

	want := []string{
		"apple", "/ˈæp.əl/", "noun", "a round fruit", "苹果",
		"I ate an apple.<br>我吃了一个苹果。",
		`<img src="image.png">`, "[sound:a.wav]",
	}
	for i := range want {
		if records[1][i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, records[1][i], want[i])
		}
	}

	if records[2][5] != "I ate an apple." || records[2][6] != "" || records[2][7] != "" {
		t.Errorf("Unexpected plain row: %v", records[2])
	}
}

func TestGenerateCSVWithoutHeaders(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "test.csv")
	gen := NewGenerator(&GeneratorOptions{OutputPath: outputPath})
	gen.AddCard(Card{Word: "apple"})

	if err := gen.GenerateCSV(); err != nil {
		t.Fatalf("GenerateCSV failed: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "apple,,,,,,,\n" {
		t.Errorf("Unexpected CSV content: %q", data)
	}
}

func TestGenerateCSVBadPath(t *testing.T) {
	gen := NewGenerator(&GeneratorOptions{OutputPath: filepath.Join(t.TempDir(), "missing", "x.csv")})
	if err := gen.GenerateCSV(); err == nil {
		t.Error("Expected error for unwritable path")
	}
}

func TestExampleField(t *testing.T) {
	tests := []struct {
		card Card
		want string
	}{
		{Card{Example: "Hi.", ExampleZH: "嗨。"}, "Hi.<br>嗨。"},
		{Card{Example: "Hi."}, "Hi."},
		{Card{ExampleZH: "嗨。"}, "嗨。"},
		{Card{}, ""},
	}
	for _, tt := range tests {
		if got := exampleField(tt.card); got != tt.want {
			t.Errorf("exampleField(%+v) = %q, want %q", tt.card, got, tt.want)
		}
	}
}

func TestMediaName(t *testing.T) {
	if got := mediaName(Card{ID: "123_abc", Word: "apple"}, "/x/123_abc/image.png"); got != "123_abc_image.png" {
		t.Errorf("mediaName with id = %q", got)
	}
	if got := mediaName(Card{Word: "ice cream"}, "/tmp/speech.wav"); got != "ice cream_speech.wav" {
		t.Errorf("mediaName without id = %q", got)
	}
}

func TestStats(t *testing.T) {
	gen := NewGenerator(nil)
	gen.AddCard(Card{Word: "a", AudioFile: "a.wav", ImageFile: "a.png"})
	gen.AddCard(Card{Word: "b", AudioFile: "b.wav"})
	gen.AddCard(Card{Word: "c"})

	total, withAudio, withImages := gen.Stats()
	if total != 3 || withAudio != 2 || withImages != 1 {
		t.Errorf("Stats() = %d, %d, %d, want 3, 2, 1", total, withAudio, withImages)
	}
}
