package plugin

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Beijizb/obsidian-image-beiji/internal/cleanup"
	"github.com/Beijizb/obsidian-image-beiji/internal/config"
	"github.com/Beijizb/obsidian-image-beiji/internal/imaging"
	"github.com/Beijizb/obsidian-image-beiji/internal/logging"
	"github.com/Beijizb/obsidian-image-beiji/internal/metrics"
	"github.com/Beijizb/obsidian-image-beiji/internal/paste"
	"github.com/Beijizb/obsidian-image-beiji/internal/publish"
)

// Plugin is the host-facing lifecycle around the paste pipeline. It owns
// the configuration snapshot and the long-lived pipeline components.
type Plugin struct {
	store      config.Store
	normalizer *imaging.Normalizer
	publisher  *publish.Client
	cleaner    *cleanup.Cleaner
	observer   metrics.Observer
	log        *logrus.Entry

	mu     sync.RWMutex
	cfg    config.Config
	active bool
}

// Option configures a Plugin.
type Option func(*pluginOptions)

type pluginOptions struct {
	tempDir    string
	httpClient *http.Client
	observer   metrics.Observer
}

// WithTempDir places converted images in dir instead of the system temp dir.
func WithTempDir(dir string) Option {
	return func(o *pluginOptions) { o.tempDir = dir }
}

// WithHTTPClient uploads through client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *pluginOptions) { o.httpClient = client }
}

// WithObserver records pipeline metrics.
func WithObserver(observer metrics.Observer) Option {
	return func(o *pluginOptions) { o.observer = observer }
}

// New builds an inactive Plugin reading settings from store.
func New(store config.Store, opts ...Option) *Plugin {
	o := pluginOptions{observer: metrics.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = metrics.Nop()
	}

	var nopts []imaging.NormalizerOption
	if o.tempDir != "" {
		nopts = append(nopts, imaging.WithTempDir(o.tempDir))
	}

	p := &Plugin{
		store:      store,
		normalizer: imaging.NewNormalizer(nopts...),
		publisher:  publish.NewClient(o.httpClient),
		cleaner:    cleanup.New(),
		observer:   o.observer,
		log:        logging.For("plugin"),
		cfg:        config.Default(),
	}
	p.cleaner.OnWarning = func(*cleanup.Warning) {
		p.observer.RecordCleanupFailure()
	}
	return p
}

// OnActivate loads the configuration once. Pastes before activation use
// the defaults, which carry no auth code and are therefore ignored.
func (p *Plugin) OnActivate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Reload(); err != nil {
		return err
	}
	p.mu.Lock()
	p.active = true
	p.mu.Unlock()

	cfg := p.Config()
	p.log.WithFields(logrus.Fields{
		"domain":        cfg.Domain,
		"channel":       cfg.UploadChannel,
		"webp_lossless": cfg.WebPLossless,
		"configured":    cfg.Validate() == nil,
	}).Info("plugin activated")
	return nil
}

// OnDeactivate waits for pending cleanups or until ctx is done.
func (p *Plugin) OnDeactivate(ctx context.Context) error {
	p.mu.Lock()
	p.active = false
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.cleaner.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("plugin deactivated")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pending cleanups did not finish: %w", ctx.Err())
	}
}

// Active reports whether OnActivate has run without a matching OnDeactivate.
func (p *Plugin) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Config returns the current configuration snapshot.
func (p *Plugin) Config() config.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Reload re-reads the settings store and replaces the snapshot. The old
// snapshot stays in place when the store cannot be read.
func (p *Plugin) Reload() error {
	partial, err := p.store.Load()
	if err != nil {
		return err
	}
	cfg := config.Merge(partial)

	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()

	p.log.WithField("config", fmt.Sprintf("%+v", cfg.Redacted())).Debug("configuration loaded")
	return nil
}

// UpdateSetting validates and persists one setting, then reloads.
func (p *Plugin) UpdateSetting(key, value string) error {
	next, err := config.Apply(p.Config(), key, value)
	if err != nil {
		return err
	}
	if err := p.store.Save(next); err != nil {
		return err
	}
	return p.Reload()
}

// HandlePaste runs one paste event through the pipeline with the current
// snapshot. Notices go to notifier. It reports whether the host's default
// paste was suppressed.
func (p *Plugin) HandlePaste(ctx context.Context, ev *paste.Event, notifier paste.Notifier) bool {
	o := paste.New(p.normalizer, p.publisher, p.cleaner, notifier, paste.WithObserver(p.observer))
	return o.HandlePaste(ctx, p.Config(), ev)
}

// Publish normalizes and uploads src outside of a paste event and returns
// the Markdown reference. Unlike HandlePaste it reports errors to the
// caller.
func (p *Plugin) Publish(ctx context.Context, src imaging.Source) (string, error) {
	cfg := p.Config()
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	asset, err := p.normalizer.Normalize(ctx, src, cfg)
	if err != nil {
		return "", err
	}
	if asset.Temporary {
		defer p.cleaner.Clean(asset.Path)
	}

	url, err := p.publisher.Upload(ctx, asset, cfg)
	if err != nil {
		return "", err
	}
	return paste.Markdown(asset.Name, url), nil
}
