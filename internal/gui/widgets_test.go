package gui

import (
	"strings"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"

	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

func sampleRecord() vocab.WordRecord {
	return vocab.WordRecord{
		Word:         "apple",
		Phonetic:     "/ˈæp.əl/",
		PartOfSpeech: "noun",
		DefinitionEN: "a round fruit with red or green skin",
		DefinitionZH: "苹果",
		Example:      "She ate an apple.",
		ExampleZH:    "她吃了一个苹果。",
	}
}

func TestRecordFront(t *testing.T) {
	tests := []struct {
		name   string
		record vocab.WordRecord
		want   string
	}{
		{"full", sampleRecord(), "# apple\n\n/ˈæp.əl/  *noun*"},
		{"no phonetic", vocab.WordRecord{Word: "run", PartOfSpeech: "verb"}, "# run\n\n*verb*"},
		{"word only", vocab.WordRecord{Word: "run"}, "# run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecordFront(tt.record); got != tt.want {
				t.Errorf("RecordFront() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordBack(t *testing.T) {
	got := RecordBack(sampleRecord())
	for _, want := range []string{
		"**English:** a round fruit",
		"**中文:** 苹果",
		"> She ate an apple.",
		"> 她吃了一个苹果。",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RecordBack() missing %q in %q", want, got)
		}
	}

	if got := RecordBack(vocab.WordRecord{Word: "x", DefinitionZH: "某物"}); got != "**中文:** 某物" {
		t.Errorf("RecordBack() = %q", got)
	}
}

func TestLabelText(t *testing.T) {
	tests := []struct {
		label vocab.Label
		want  string
	}{
		{vocab.Label{Name: "cat", NameZH: "猫", Confidence: 0.97}, "cat (猫) 97%"},
		{vocab.Label{Name: "sofa", Confidence: 0.5}, "sofa 50%"},
	}
	for _, tt := range tests {
		if got := LabelText(tt.label); got != tt.want {
			t.Errorf("LabelText(%+v) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestListText(t *testing.T) {
	w := vocab.SavedWord{WordRecord: vocab.WordRecord{Word: "apple", DefinitionZH: "苹果"}}
	if got := listText(w); got != "apple - 苹果" {
		t.Errorf("listText() = %q", got)
	}
	w.DefinitionZH = ""
	if got := listText(w); got != "apple" {
		t.Errorf("listText() = %q", got)
	}
}

func TestCardIndexAndProgress(t *testing.T) {
	cards := []vocab.SavedWord{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if got := cardIndex(cards, "c"); got != 2 {
		t.Errorf("cardIndex(c) = %d, want 2", got)
	}
	if got := cardIndex(cards, "gone"); got != 0 {
		t.Errorf("cardIndex(gone) = %d, want 0", got)
	}
	if got := progressText(1, 3); got != "2 / 3" {
		t.Errorf("progressText() = %q", got)
	}
	if got := progressText(0, 0); got != "" {
		t.Errorf("progressText() on empty deck = %q", got)
	}
}

func TestTranscriptViewMergesSpeakers(t *testing.T) {
	test.NewTempApp(t)

	v := NewTranscriptView()
	v.now = func() time.Time { return time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC) }

	v.Add(live.RoleModel, "Hello, ")
	v.Add(live.RoleModel, "how are you?")
	v.Add(live.RoleUser, "Fine")
	v.Add(live.RoleUser, "   ")
	v.Note("Session %s", "ended")

	want := strings.Join([]string{
		"[09:30:00] Tutor: Hello, how are you?",
		"[09:30:00] You: Fine",
		"[09:30:00] -- Session ended",
	}, "\n")
	if got := v.Text(); got != want {
		t.Errorf("Text() =\n%s\nwant\n%s", got, want)
	}

	v.Clear()
	if got := v.Text(); got != "" {
		t.Errorf("Text() after Clear = %q", got)
	}
}

func TestTranscriptViewKeepsLastMessages(t *testing.T) {
	test.NewTempApp(t)

	v := NewTranscriptView()
	v.maxMessages = 2
	v.Add(live.RoleUser, "one")
	v.Add(live.RoleModel, "two")
	v.Add(live.RoleUser, "three")

	got := v.Text()
	if strings.Contains(got, "one") || !strings.Contains(got, "three") {
		t.Errorf("Text() = %q, want only the last two lines", got)
	}
}
