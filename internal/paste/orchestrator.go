package paste

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Beijizb/obsidian-image-beiji/internal/config"
	"github.com/Beijizb/obsidian-image-beiji/internal/imaging"
	"github.com/Beijizb/obsidian-image-beiji/internal/logging"
	"github.com/Beijizb/obsidian-image-beiji/internal/metrics"
	"github.com/Beijizb/obsidian-image-beiji/internal/publish"
)

// Notice durations, matching what the editor plugin has always shown.
const (
	warningDuration  = 5 * time.Second
	progressDuration = 2 * time.Second
	successDuration  = 3 * time.Second
	errorDuration    = 8 * time.Second
)

// Normalizer produces an upload-ready asset from a raw source.
type Normalizer interface {
	Normalize(ctx context.Context, src imaging.Source, cfg config.Config) (*imaging.Asset, error)
}

// Publisher uploads an asset and returns its public URL.
type Publisher interface {
	Upload(ctx context.Context, asset *imaging.Asset, cfg config.Config) (string, error)
}

// Cleaner disposes of temporary files. It must never block on deletion.
type Cleaner interface {
	Clean(path string)
}

// Orchestrator runs the paste-to-publish pipeline for one event at a time.
type Orchestrator struct {
	normalizer Normalizer
	publisher  Publisher
	cleaner    Cleaner
	notifier   Notifier
	extractors []Extractor
	observer   metrics.Observer
	log        *logrus.Entry
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExtractors replaces the default extractor order.
func WithExtractors(extractors ...Extractor) Option {
	return func(o *Orchestrator) {
		o.extractors = extractors
	}
}

// WithObserver records pipeline metrics.
func WithObserver(observer metrics.Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// New wires an Orchestrator.
func New(n Normalizer, p Publisher, c Cleaner, notifier Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		normalizer: n,
		publisher:  p,
		cleaner:    c,
		notifier:   notifier,
		extractors: DefaultExtractors(),
		observer:   metrics.Nop(),
		log:        logging.For("paste"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandlePaste inspects ev and, if it carries an image, suppresses the
// default paste and publishes the image. It reports whether the default
// paste was suppressed.
//
// With no auth code configured nothing happens beyond a warning. Errors
// never escape: each one becomes a single error notice and the editor is
// left untouched.
func (o *Orchestrator) HandlePaste(ctx context.Context, cfg config.Config, ev *Event) bool {
	if err := cfg.Validate(); err != nil {
		o.log.WithError(err).Debug("paste ignored")
		o.notify(LevelWarning, "Please configure the auth code in the plugin settings first", warningDuration)
		return false
	}

	for _, ex := range o.extractors {
		src, ok := ex.Extract(ev)
		if !ok {
			continue
		}
		ev.PreventDefault()
		o.publish(ctx, cfg, ev, ex.Name(), src)
		return true
	}
	return false
}

func (o *Orchestrator) publish(ctx context.Context, cfg config.Config, ev *Event, branch string, src imaging.Source) {
	entry := o.log.WithFields(logrus.Fields{"branch": branch, "source": src.Name})

	// A decoder panic on a malformed image must not take the host down.
	defer func() {
		if r := recover(); r != nil {
			o.fail(entry, branch, "panic", fmt.Errorf("internal error: %v", r))
		}
	}()

	started := time.Now()
	asset, err := o.normalizer.Normalize(ctx, src, cfg)
	if cfg.WebPLossless {
		o.observer.RecordConversion(time.Since(started), err)
	}
	if err != nil {
		o.fail(entry, branch, "convert", err)
		return
	}
	if asset.Temporary {
		defer o.cleaner.Clean(asset.Path)
	}

	o.notify(LevelInfo, fmt.Sprintf("Uploading %s...", asset.Name), progressDuration)

	started = time.Now()
	url, err := o.publisher.Upload(ctx, asset, cfg)
	o.observer.RecordUpload(time.Since(started), assetSize(asset), err)
	if err != nil {
		o.fail(entry, branch, "upload", err)
		return
	}

	if ev.Editor != nil {
		ev.Editor.ReplaceSelection(Markdown(asset.Name, url))
	}
	entry.WithField("url", url).Info("image published")
	o.observer.RecordPaste(branch, "success")
	o.notify(LevelSuccess, "Image uploaded", successDuration)
}

func (o *Orchestrator) fail(entry *logrus.Entry, branch, stage string, err error) {
	entry.WithField("stage", stage).WithError(err).Error("paste pipeline failed")
	o.observer.RecordPaste(branch, "error")
	o.notify(LevelError, UserMessage(err), errorDuration)
}

func (o *Orchestrator) notify(level Level, msg string, d time.Duration) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(Notice{Level: level, Message: msg, Duration: d})
}

// Markdown renders the image reference inserted into the editor.
func Markdown(name, url string) string {
	return fmt.Sprintf("![%s](%s)", name, url)
}

// UserMessage converts a pipeline error into the text shown to the user.
func UserMessage(err error) string {
	var (
		convErr  *imaging.ConversionError
		upErr    *publish.UploadError
		shapeErr *publish.ResponseShapeError
		cfgErr   *config.ConfigurationError
	)
	switch {
	case errors.As(err, &upErr):
		return "Upload failed: " + upErr.Message
	case errors.As(err, &shapeErr):
		return "Upload failed: " + shapeErr.Reason
	case errors.As(err, &convErr):
		if convErr.Err != nil {
			return "WebP conversion failed: " + convErr.Err.Error()
		}
		return convErr.Error()
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	default:
		return "Upload failed: " + err.Error()
	}
}

func assetSize(a *imaging.Asset) int64 {
	if a.Data != nil {
		return int64(len(a.Data))
	}
	if fi, err := os.Stat(a.Path); err == nil {
		return fi.Size()
	}
	return 0
}
