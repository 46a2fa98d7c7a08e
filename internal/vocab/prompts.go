package vocab

import (
	"fmt"
	"strings"
)

// ImagePrompt builds the illustration prompt for a word
func ImagePrompt(r WordRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A clear, friendly illustration that helps a language learner remember the English word %q", r.Word)
	if r.PartOfSpeech != "" {
		fmt.Fprintf(&b, " (%s)", r.PartOfSpeech)
	}
	if r.DefinitionEN != "" {
		fmt.Fprintf(&b, ", meaning: %s", r.DefinitionEN)
	}
	b.WriteString(". ")
	if r.Example != "" {
		fmt.Fprintf(&b, "Depict this scene: %s ", r.Example)
	}
	b.WriteString("No text, letters or captions in the image.")
	return b.String()
}

// VideoPrompt builds the short clip prompt for a word
func VideoPrompt(r WordRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A short, simple video scene illustrating the English word %q", r.Word)
	if r.DefinitionEN != "" {
		fmt.Fprintf(&b, " (%s)", r.DefinitionEN)
	}
	b.WriteString(".")
	if r.Example != "" {
		fmt.Fprintf(&b, " The scene shows: %s", r.Example)
	}
	b.WriteString(" Bright lighting, steady camera, no on-screen text.")
	return b.String()
}

// PracticeInstruction extends a live tutor instruction with up to max saved
// words the tutor should weave into the conversation
func PracticeInstruction(base string, words []SavedWord, max int) string {
	if len(words) == 0 || max <= 0 {
		return base
	}
	if len(words) > max {
		words = words[:max]
	}

	names := make([]string, 0, len(words))
	for _, w := range words {
		names = append(names, w.Word)
	}

	return fmt.Sprintf("%s\n\nThe learner is studying these words: %s.\n"+
		"Use them naturally in the conversation and ask the learner to use them too.",
		strings.TrimSpace(base), strings.Join(names, ", "))
}
