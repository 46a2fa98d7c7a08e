package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// GenerateWordID creates a unique ID for a saved word based on timestamp and the word itself
// Format: epochMillis_md5(lowercase word)[:8]
func GenerateWordID(word string) string {
	return generateWordIDAt(word, time.Now())
}

func generateWordIDAt(word string, now time.Time) string {
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(word))))
	hashStr := hex.EncodeToString(hash[:])[:8]

	return fmt.Sprintf("%d_%s", now.UnixMilli(), hashStr)
}

// SanitizeFilename creates a safe filename from a string
func SanitizeFilename(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
