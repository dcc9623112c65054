package imaging

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	// Register the WebP decoder alongside the formats imaging already pulls in.
	_ "golang.org/x/image/webp"
)

// Source is a raw image captured from a paste: either in-memory bytes from
// the clipboard or a path to an existing local file. A Source is never
// modified after construction.
type Source struct {
	// Name is the suggested filename for in-memory data, or the base name of Path.
	Name string

	// MimeType is the declared content type. For path sources it is derived
	// from the file extension.
	MimeType string

	// Data holds clipboard bytes. Nil for path sources.
	Data []byte

	// Path is the local file. Empty for in-memory sources.
	Path string
}

// FromBytes captures clipboard bytes. An empty or generic mimeType is
// replaced with one sniffed from the data, and an empty name defaults to
// "image" plus the extension of that type.
func FromBytes(data []byte, mimeType, name string) Source {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" || mimeType == "image/*" {
		mimeType = mimetype.Detect(data).String()
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "image" + ExtFromMimeType(mimeType)
	}
	return Source{Name: name, MimeType: mimeType, Data: data}
}

// FromPath captures a reference to a local image file.
func FromPath(path string) Source {
	return Source{
		Name:     filepath.Base(path),
		MimeType: MimeTypeFromExt(path),
		Path:     path,
	}
}

// InMemory reports whether the source carries its own bytes.
func (s Source) InMemory() bool {
	return s.Path == ""
}

// Decode reads the source pixels. EXIF orientation is not applied so the
// decoded pixels match the stored ones exactly.
func (s Source) Decode() (image.Image, error) {
	if s.InMemory() {
		if len(s.Data) == 0 {
			return nil, fmt.Errorf("clipboard image %q is empty", s.Name)
		}
		img, err := imaging.Decode(bytes.NewReader(s.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", s.Name, err)
		}
		return img, nil
	}

	if _, err := os.Stat(s.Path); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := imaging.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ImageInfo describes decoded pixels for diagnostics.
type ImageInfo struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	ColorDepth string `json:"color_depth"`
	HasAlpha   bool   `json:"has_alpha"`
}

// Inspect reports dimensions, colour depth and alpha presence of img.
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func Inspect(img image.Image) ImageInfo {
	bounds := img.Bounds()

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return ImageInfo{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
	}
}
