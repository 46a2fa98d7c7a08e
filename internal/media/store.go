// Package media stores generated images, videos and speech for saved words
// on disk, one directory per word id.
package media

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/lexilive/internal"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// Options configures a Store
type Options struct {
	RootDir      string // Directory holding one subdirectory per word
	MaxSizeBytes int64  // Maximum accepted payload (0 = no limit)
}

// DefaultOptions returns sensible defaults
func DefaultOptions(rootDir string) *Options {
	return &Options{
		RootDir:      rootDir,
		MaxSizeBytes: 200 * 1024 * 1024, // videos can be large
	}
}

// Store writes media files below RootDir
type Store struct {
	options *Options
}

// New creates a media store, creating the root directory
func New(options *Options) (*Store, error) {
	if options == nil || options.RootDir == "" {
		return nil, fmt.Errorf("media root directory is required")
	}
	if err := os.MkdirAll(options.RootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{options: options}, nil
}

// Root returns the media root directory
func (s *Store) Root() string {
	return s.options.RootDir
}

// Put writes m as <root>/<id>/<kind><ext> and returns the relative reference
func (s *Store) Put(id, kind string, m vocab.Media) (string, error) {
	if len(m.Data) == 0 {
		return "", fmt.Errorf("no %s data to store", kind)
	}
	if s.options.MaxSizeBytes > 0 && int64(len(m.Data)) > s.options.MaxSizeBytes {
		return "", fmt.Errorf("%s exceeds maximum size of %d bytes", kind, s.options.MaxSizeBytes)
	}

	dirName := internal.SanitizeFilename(id)
	if dirName == "" {
		return "", fmt.Errorf("invalid word id %q", id)
	}

	ref := filepath.ToSlash(filepath.Join(dirName, internal.SanitizeFilename(kind)+Extension(m.MIMEType, kind)))
	path := s.Path(ref)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated file behind a ref
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, m.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", kind, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize %s: %w", kind, err)
	}
	s.removeOtherExtensions(path)

	return ref, nil
}

// removeOtherExtensions deletes earlier files of the same kind stored with a
// different extension, e.g. image.jpg after a PNG replaced it
func (s *Store) removeOtherExtensions(path string) {
	dir, name := filepath.Split(path)
	prefix := strings.TrimSuffix(name, filepath.Ext(name)) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		n := e.Name()
		if n != name && strings.HasPrefix(n, prefix) && !strings.HasSuffix(n, ".tmp") {
			os.Remove(filepath.Join(dir, n))
		}
	}
}

// Path resolves a reference returned by Put to an absolute file path.
// References that escape the root resolve to an empty string.
func (s *Store) Path(ref string) string {
	if ref == "" {
		return ""
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.Join(s.options.RootDir, clean)
}

// Read returns the content and MIME type of a stored reference
func (s *Store) Read(ref string) (vocab.Media, error) {
	path := s.Path(ref)
	if path == "" {
		return vocab.Media{}, fmt.Errorf("invalid media reference %q", ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return vocab.Media{}, fmt.Errorf("failed to read media: %w", err)
	}
	return vocab.Media{Data: data, MIMEType: mime.TypeByExtension(filepath.Ext(path))}, nil
}

// Remove deletes all media of a word. Removing a word without media is not an error.
func (s *Store) Remove(id string) error {
	dirName := internal.SanitizeFilename(id)
	if dirName == "" {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(s.options.RootDir, dirName)); err != nil {
		return fmt.Errorf("failed to remove media for %s: %w", id, err)
	}
	return nil
}

// Extension picks a file extension for a MIME type, falling back on the media kind
func Extension(mimeType, kind string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	}

	switch kind {
	case vocab.KindImage:
		return ".png"
	case vocab.KindVideo:
		return ".mp4"
	default:
		return ".bin"
	}
}
