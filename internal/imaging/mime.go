package imaging

import (
	"path/filepath"
	"strings"
)

// Canonical output format of the normalizer.
const (
	CanonicalExt      = ".webp"
	CanonicalMimeType = "image/webp"
)

var extMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// MimeTypeFromExt derives a content type from the extension of path,
// case-insensitively. Unknown extensions map to application/octet-stream.
func MimeTypeFromExt(path string) string {
	if mt, ok := extMimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// ExtFromMimeType returns the preferred extension for a content type, or
// ".png" when the type is not an image type we know.
func ExtFromMimeType(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	default:
		return ".png"
	}
}

// IsImageType reports whether a declared clipboard type denotes an image.
func IsImageType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// stripExt returns name without its final extension.
func stripExt(name string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}
