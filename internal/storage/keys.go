package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// VideoKey is where a recording lives: videos/{userID}/{videoID}{ext}.
// The extension comes from the original filename, falling back to the
// content type.
func VideoKey(userID, videoID uuid.UUID, filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 6 {
		ext = ExtensionForContentType(contentType)
	}
	return fmt.Sprintf("videos/%s/%s%s", userID, videoID, ext)
}

// PosterKey is where the poster thumbnail of a recording lives.
func PosterKey(userID, videoID uuid.UUID) string {
	return fmt.Sprintf("videos/%s/%s/poster.jpg", userID, videoID)
}

// validKey rejects empty keys, absolute keys and traversal attempts.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return false
		}
	}
	return true
}
