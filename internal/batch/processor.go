package batch

import (
	"fmt"
	"os"
	"strings"
)

// WordEntry represents a word with an optional note
type WordEntry struct {
	Word string
	// Note is a hint kept next to the word, e.g. which sense is meant
	Note string
}

// ReadBatchFile reads words from a file and returns WordEntry slice
// Supports formats:
// - Word only: "serendipity"
// - With note: "bank = the side of a river"
// - Comments: lines starting with "#" are ignored
func ReadBatchFile(filename string) ([]WordEntry, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return Parse(string(content)), nil
}

// Parse parses batch file content
func Parse(content string) []WordEntry {
	var entries []WordEntry
	seen := make(map[string]bool)

	for _, line := range splitLines(content) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry := WordEntry{Word: line}
		// Check if line contains '=' for the note format
		if word, note, ok := strings.Cut(line, "="); ok {
			entry = WordEntry{
				Word: strings.TrimSpace(word),
				Note: strings.TrimSpace(note),
			}
		}
		// Ignore lines without a word
		if entry.Word == "" {
			continue
		}

		// Keep the first occurrence of a word
		key := strings.ToLower(entry.Word)
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, entry)
	}

	return entries
}

// splitLines splits a string by newlines, dropping carriage returns
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
