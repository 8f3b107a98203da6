package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SecureJoin joins path elements and ensures the result stays within base.
// Unlike filepath.Join, it rejects elements that escape base through "..".
//
// Example usage:
//
//	localPath, err := SecureJoin(cacheDir, objectKey)
//	if err != nil {
//		return fmt.Errorf("invalid object key: %w", err)
//	}
func SecureJoin(base string, elements ...string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}

	cleanBase := filepath.Clean(base)
	fullPath := filepath.Join(append([]string{cleanBase}, elements...)...)

	if !IsWithin(cleanBase, fullPath) {
		return "", fmt.Errorf("path escapes base directory")
	}
	return fullPath, nil
}

// IsWithin reports whether path is base itself or lies below it.
func IsWithin(base, path string) bool {
	cleanBase := filepath.Clean(base)
	cleanPath := filepath.Clean(path)
	return cleanPath == cleanBase || strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator))
}

// ToSlash normalises path separators and strips a trailing separator, so that
// product paths can be matched with the same patterns on every platform.
func ToSlash(path string) string {
	p := filepath.ToSlash(path)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
