package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchiveData moves the data directory (word database and media) to
// <parent>/archive/data-<timestamp> and returns the new location. The
// application starts with an empty word list afterwards.
func ArchiveData(dataDir string) (string, error) {
	return archiveAt(dataDir, time.Now())
}

func archiveAt(dataDir string, now time.Time) (string, error) {
	// Check if data directory exists
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("data directory does not exist: %s", dataDir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to access data directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("data path is not a directory: %s", dataDir)
	}

	// Get parent directory and create archive path
	archiveDir := filepath.Join(filepath.Dir(filepath.Clean(dataDir)), "archive")

	// Create archive directory if it doesn't exist
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	// Generate timestamp
	base := fmt.Sprintf("data-%s", now.Format("20060102-150405"))
	archivePath := filepath.Join(archiveDir, base)

	// Add a counter while the archive already exists
	for i := 2; ; i++ {
		if _, err := os.Stat(archivePath); os.IsNotExist(err) {
			break
		}
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s-%d", base, i))
	}

	// Rename data directory to archive
	if err := os.Rename(dataDir, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive data directory: %w", err)
	}

	return archivePath, nil
}
