package storage

import (
	"mime"
	"path/filepath"
	"strings"
)

// AllowedVideoTypes are the container formats accepted for upload.
var AllowedVideoTypes = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"video/x-msvideo":  ".avi",
	"video/mpeg":       ".mpeg",
	"video/ogg":        ".ogv",
	"video/3gpp":       ".3gp",
}

func baseType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(t))
}

// IsAllowedVideoType checks a declared content type against AllowedVideoTypes.
func IsAllowedVideoType(contentType string) bool {
	_, ok := AllowedVideoTypes[baseType(contentType)]
	return ok
}

// DetectContentType returns providedType when set, otherwise guesses from
// the filename extension, otherwise application/octet-stream.
func DetectContentType(providedType, filename string) string {
	if providedType != "" && baseType(providedType) != "application/octet-stream" {
		return providedType
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for ct, e := range AllowedVideoTypes {
		if e == ext {
			return ct
		}
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ExtensionForContentType returns a file extension for a MIME type.
func ExtensionForContentType(contentType string) string {
	bt := baseType(contentType)
	if ext, ok := AllowedVideoTypes[bt]; ok {
		return ext
	}
	if bt == "image/jpeg" {
		return ".jpg"
	}
	if exts, err := mime.ExtensionsByType(bt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
