package paste

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Beijizb/obsidian-image-beiji/internal/imaging"
)

// Branch names, used in logs and metrics.
const (
	BranchClipboard = "clipboard"
	BranchMarkdown  = "markdown"
)

// Extractor tries to pull one image source out of a paste event.
type Extractor interface {
	Name() string
	Extract(ev *Event) (imaging.Source, bool)
}

// DefaultExtractors returns the strategies in priority order: clipboard
// image data first, then a Markdown image reference to a local file.
func DefaultExtractors() []Extractor {
	return []Extractor{ClipboardImageExtractor{}, MarkdownPathExtractor{}}
}

// ClipboardImageExtractor takes the first clipboard item whose type is an
// image type. Later image items are ignored.
type ClipboardImageExtractor struct{}

// Name implements Extractor.
func (ClipboardImageExtractor) Name() string { return BranchClipboard }

// Extract implements Extractor.
func (ClipboardImageExtractor) Extract(ev *Event) (imaging.Source, bool) {
	for _, item := range ev.Items {
		if imaging.IsImageType(item.Type) {
			return imaging.FromBytes(item.Data, item.Type, item.Name), true
		}
	}
	return imaging.Source{}, false
}

var markdownImage = regexp.MustCompile(`(?i)!\[[^\]]*\]\(\s*((?:file://)?[^)\s]+\.(?:png|jpe?g|gif|webp))\s*\)`)

// MarkdownPathExtractor matches ![alt](path) in pasted text where path is a
// local png, jpg, jpeg, gif or webp file, optionally written as a file://
// URL.
type MarkdownPathExtractor struct{}

// Name implements Extractor.
func (MarkdownPathExtractor) Name() string { return BranchMarkdown }

// Extract implements Extractor.
func (MarkdownPathExtractor) Extract(ev *Event) (imaging.Source, bool) {
	for _, m := range markdownImage.FindAllStringSubmatch(ev.Text, -1) {
		if path, ok := LocalPath(m[1]); ok {
			return imaging.FromPath(path), true
		}
	}
	return imaging.Source{}, false
}

// LocalPath turns a Markdown image target into a filesystem path. A
// file:// prefix is stripped and percent-escapes decoded; other URL
// schemes are rejected.
func LocalPath(target string) (string, bool) {
	if len(target) >= len("file://") && strings.EqualFold(target[:len("file://")], "file://") {
		path := target[len("file://"):]
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}
		return path, path != ""
	}
	if strings.Contains(target, "://") {
		return "", false
	}
	return target, true
}
