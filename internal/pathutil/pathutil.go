// Package pathutil validates user-supplied file paths before the engine
// reads an origin or writes a destination.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects empty paths, null bytes, and path traversal.
// Detection is segment-based so "datos/../etc/passwd" is caught before
// cleaning (the cleaned path would be "etc/passwd" and could slip past a
// plain ".." prefix check).
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}

	normalized := filepath.ToSlash(filePath)
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	return nil
}
