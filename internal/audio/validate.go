package audio

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxWordLength is the longest input accepted for lookup or speech, in runes
const MaxWordLength = 64

// MaxSpeechLength is the longest text accepted for speech synthesis, in runes
const MaxSpeechLength = 1000

// ValidateWord validates that the input is a plausible word or short phrase
func ValidateWord(text string) error {
	return validateText(text, MaxWordLength)
}

// ValidateSpeechText validates text passed to speech synthesis
func ValidateSpeechText(text string) error {
	return validateText(text, MaxSpeechLength)
}

func validateText(text string, max int) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if n := utf8.RuneCountInString(text); n > max {
		return fmt.Errorf("text is too long (%d characters, max %d)", n, max)
	}

	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}

	if !hasLetter {
		return fmt.Errorf("text must contain at least one letter")
	}

	return nil
}
