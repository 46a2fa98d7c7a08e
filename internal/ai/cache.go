package ai

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// SpeechCache stores synthesized speech on disk so repeated words do not
// cost another API call. Every other operation passes straight through.
type SpeechCache struct {
	Provider
	dir    string
	prefix string
}

// NewSpeechCache wraps provider with an on-disk speech cache in dir. The
// prefix is mixed into every key so changing the voice invalidates entries.
func NewSpeechCache(provider Provider, dir, prefix string) (*SpeechCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &SpeechCache{Provider: provider, dir: dir, prefix: prefix}, nil
}

// Speak returns cached speech for text or synthesizes and caches it
func (c *SpeechCache) Speak(ctx context.Context, text string) (vocab.Media, error) {
	cacheFile := c.cacheFilePath(text)
	if data, err := os.ReadFile(cacheFile); err == nil && audio.IsWAV(data) {
		return vocab.Media{Data: data, MIMEType: "audio/wav"}, nil
	}

	media, err := c.Provider.Speak(ctx, text)
	if err != nil {
		return media, err
	}

	if audio.IsWAV(media.Data) {
		_ = c.store(cacheFile, media.Data) // Ignore cache errors
	}
	return media, nil
}

// cacheFilePath generates a cache file path for the given text
func (c *SpeechCache) cacheFilePath(text string) string {
	h := md5.New()
	h.Write([]byte(c.prefix))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(text)))
	hash := hex.EncodeToString(h.Sum(nil))

	// Use first 2 chars as subdirectory for better file system performance
	return filepath.Join(c.dir, hash[:2], hash[2:]+".wav")
}

func (c *SpeechCache) store(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Clear removes all cached speech
func (c *SpeechCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// Stats returns the number of cached files and their total size
func (c *SpeechCache) Stats() (fileCount int, totalSize int64, err error) {
	err = filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			fileCount++
			totalSize += info.Size()
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, 0, nil
	}
	return fileCount, totalSize, err
}
