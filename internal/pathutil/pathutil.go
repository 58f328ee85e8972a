// Package pathutil provides shared path validation helpers for files named in
// pipeline configurations.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Stdio is the path that selects standard input or output.
const Stdio = "-"

// ValidateFilePath rejects empty paths, null bytes and ".." segments.
// Segments are checked before cleaning, so "data/../etc/passwd" is rejected
// even though its cleaned form has no "..".
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}

	for _, segment := range strings.Split(filepath.ToSlash(filePath), "/") {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	return nil
}

// Resolve validates p and makes it relative to baseDir unless it is absolute.
// Empty and Stdio paths are returned unchanged.
func Resolve(baseDir, p string) (string, error) {
	if p == "" || p == Stdio {
		return p, nil
	}
	if err := ValidateFilePath(p); err != nil {
		return "", err
	}
	if filepath.IsAbs(p) || baseDir == "" {
		return filepath.Clean(p), nil
	}
	return filepath.Join(baseDir, p), nil
}
