package imaging

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Beijizb/obsidian-image-beiji/internal/config"
	"github.com/Beijizb/obsidian-image-beiji/internal/logging"
)

// Asset is a file-like resource ready for upload.
type Asset struct {
	// Name is the filename sent to the image store.
	Name string

	// Path is the backing file. Empty when Data carries the bytes.
	Path string

	// MimeType is the content type sent with the upload.
	MimeType string

	// Data holds in-memory bytes for a clipboard pass-through.
	Data []byte

	// Temporary is true when the normalizer created Path and the caller
	// owns its deletion.
	Temporary bool
}

// ConversionError reports that a source could not be decoded or encoded.
type ConversionError struct {
	Name string
	Op   string // "decode" or "encode"
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s to WebP (%s): %v", e.Name, e.Op, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Normalizer converts raw sources into the canonical lossless WebP format.
type Normalizer struct {
	tempDir string
	now     func() time.Time
	log     *logrus.Entry
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithTempDir writes converted files under dir instead of os.TempDir().
func WithTempDir(dir string) NormalizerOption {
	return func(n *Normalizer) {
		n.tempDir = dir
	}
}

// WithClock overrides the time source used in temp file names.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		n.now = now
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		now: time.Now,
		log: logging.For("imaging"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns an Asset for src.
//
// With WebP conversion disabled the source passes through unchanged and no
// file is created. With it enabled the source is decoded and re-encoded as
// lossless WebP into a new temporary file; the returned Asset has
// Temporary set and the caller must delete Path when done.
func (n *Normalizer) Normalize(ctx context.Context, src Source, cfg config.Config) (*Asset, error) {
	if !cfg.WebPLossless {
		return passThrough(src), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &ConversionError{Name: src.Name, Op: "decode", Err: err}
	}

	img, err := src.Decode()
	if err != nil {
		return nil, &ConversionError{Name: src.Name, Op: "decode", Err: err}
	}

	info := Inspect(img)
	n.log.WithFields(logrus.Fields{
		"name":   src.Name,
		"width":  info.Width,
		"height": info.Height,
		"alpha":  info.HasAlpha,
		"depth":  info.ColorDepth,
	}).Debug("decoded source image")

	base := stripExt(src.Name)
	if base == "" || base == "." {
		base = "image"
	}
	path := n.tempPath(base)

	if err := writeWebP(path, img); err != nil {
		return nil, &ConversionError{Name: src.Name, Op: "encode", Err: err}
	}

	return &Asset{
		Name:      base + CanonicalExt,
		Path:      path,
		MimeType:  CanonicalMimeType,
		Temporary: true,
	}, nil
}

func passThrough(src Source) *Asset {
	if src.InMemory() {
		return &Asset{Name: src.Name, MimeType: src.MimeType, Data: src.Data}
	}
	return &Asset{Name: src.Name, Path: src.Path, MimeType: MimeTypeFromExt(src.Path)}
}

// tempPath embeds a nanosecond timestamp and a random suffix so rapid or
// overlapping pastes of the same name never collide.
func (n *Normalizer) tempPath(base string) string {
	dir := n.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, base)
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	name := fmt.Sprintf("%s-%d-%s%s", safe, n.now().UnixNano(), suffix, CanonicalExt)
	return filepath.Join(dir, name)
}

func writeWebP(path string, img image.Image) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	// A partially written file is never handed to the caller.
	fail := func(err error) error {
		f.Close()
		os.Remove(path)
		return err
	}

	w := bufio.NewWriter(f)
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fail(fmt.Errorf("failed to encode image: %w", err))
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return nil
}
