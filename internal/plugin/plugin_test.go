package plugin

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beijizb/obsidian-image-beiji/internal/config"
	"github.com/Beijizb/obsidian-image-beiji/internal/imaging"
	"github.com/Beijizb/obsidian-image-beiji/internal/metrics"
	"github.com/Beijizb/obsidian-image-beiji/internal/paste"
)

type editorFunc func(string)

func (f editorFunc) ReplaceSelection(text string) { f(text) }

type brokenStore struct{}

func (brokenStore) Load() (config.Partial, error) { return config.Partial{}, errors.New("disk on fire") }
func (brokenStore) Save(config.Config) error       { return errors.New("disk on fire") }

func pngData(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newImageStore answers every upload with a fixed src.
func newImageStore(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"src":"/file/uploaded.webp"}]`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newConfiguredPlugin(t *testing.T, domain string, opts ...Option) (*Plugin, string) {
	t.Helper()
	dir := t.TempDir()
	store := config.NewFileStore(filepath.Join(dir, "settings.json"))
	cfg := config.Default()
	cfg.AuthCode = "code"
	cfg.Domain = domain
	require.NoError(t, store.Save(cfg))

	tmp := filepath.Join(dir, "tmp")
	require.NoError(t, os.MkdirAll(tmp, 0o755))
	p := New(store, append([]Option{WithTempDir(tmp)}, opts...)...)
	require.NoError(t, p.OnActivate(context.Background()))
	return p, tmp
}

func TestPlugin_ActivateLoadsSettings(t *testing.T) {
	p, _ := newConfiguredPlugin(t, "https://img.example")

	assert.True(t, p.Active())
	assert.Equal(t, "code", p.Config().AuthCode)
	assert.Equal(t, "https://img.example", p.Config().Domain)
	assert.Equal(t, config.DefaultUploadChannel, p.Config().UploadChannel)

	require.NoError(t, p.OnDeactivate(context.Background()))
	assert.False(t, p.Active())
}

func TestPlugin_ActivateMissingFileUsesDefaults(t *testing.T) {
	p := New(config.NewFileStore(filepath.Join(t.TempDir(), "none.json")))
	require.NoError(t, p.OnActivate(context.Background()))
	assert.Equal(t, config.Default(), p.Config())
}

func TestPlugin_ActivateStoreError(t *testing.T) {
	p := New(brokenStore{})
	err := p.OnActivate(context.Background())
	require.Error(t, err)
	assert.False(t, p.Active())
	assert.Equal(t, config.Default(), p.Config())
}

func TestPlugin_HandlePasteEndToEnd(t *testing.T) {
	var calls int32
	srv := newImageStore(t, &calls)
	reg := prometheus.NewRegistry()
	obs, err := metrics.NewPrometheusObserver("imgpaste", reg)
	require.NoError(t, err)

	p, tmp := newConfiguredPlugin(t, srv.URL, WithObserver(obs))

	var replaced []string
	var notices []paste.Notice
	ev := &paste.Event{
		Items:  []paste.Item{{Type: "image/png", Data: pngData(t)}},
		Editor: editorFunc(func(s string) { replaced = append(replaced, s) }),
	}

	handled := p.HandlePaste(context.Background(), ev, paste.NotifierFunc(func(n paste.Notice) {
		notices = append(notices, n)
	}))
	require.NoError(t, p.OnDeactivate(context.Background()))

	assert.True(t, handled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"![image.webp](" + srv.URL + "/file/uploaded.webp)"}, replaced)
	require.NotEmpty(t, notices)
	assert.Equal(t, paste.LevelSuccess, notices[len(notices)-1].Level)
	n, err := testutil.GatherAndCount(reg, "imgpaste_pastes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlugin_UpdateSettingPersistsAndReloads(t *testing.T) {
	p, _ := newConfiguredPlugin(t, "https://img.example")

	require.NoError(t, p.UpdateSetting("cfUploadFolder", "notes"))
	require.NoError(t, p.UpdateSetting("UPLOADTIMEOUT", "2500"))
	assert.Equal(t, "notes", p.Config().UploadFolder)
	assert.Equal(t, 2500*time.Millisecond, p.Config().UploadTimeout)

	// A fresh plugin over the same store sees the saved values.
	other := New(p.store)
	require.NoError(t, other.Reload())
	assert.Equal(t, "notes", other.Config().UploadFolder)
	assert.Equal(t, "code", other.Config().AuthCode)
}

func TestPlugin_UpdateSettingRejectsInvalid(t *testing.T) {
	p, _ := newConfiguredPlugin(t, "https://img.example")
	before := p.Config()

	err := p.UpdateSetting(config.KeyUploadTimeout, "soon")
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, config.KeyUploadTimeout, cfgErr.Field)
	assert.Equal(t, before, p.Config())

	require.Error(t, p.UpdateSetting("nope", "x"))
}

func TestPlugin_ChangesNeedReload(t *testing.T) {
	dir := t.TempDir()
	store := config.NewFileStore(filepath.Join(dir, "settings.json"))
	p := New(store)
	require.NoError(t, p.OnActivate(context.Background()))
	assert.Empty(t, p.Config().AuthCode)

	cfg := config.Default()
	cfg.AuthCode = "later"
	require.NoError(t, store.Save(cfg))
	assert.Empty(t, p.Config().AuthCode, "snapshot changes only on reload")

	require.NoError(t, p.Reload())
	assert.Equal(t, "later", p.Config().AuthCode)
}

func TestPlugin_PublishWithoutAuthCode(t *testing.T) {
	p := New(config.NewFileStore(filepath.Join(t.TempDir(), "none.json")))
	require.NoError(t, p.OnActivate(context.Background()))

	_, err := p.Publish(context.Background(), imaging.FromPath("/tmp/whatever.png"))
	var cfgErr *config.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPlugin_Publish(t *testing.T) {
	var calls int32
	srv := newImageStore(t, &calls)
	p, tmp := newConfiguredPlugin(t, srv.URL)

	path := filepath.Join(t.TempDir(), "diagram.png")
	require.NoError(t, os.WriteFile(path, pngData(t), 0o600))

	md, err := p.Publish(context.Background(), imaging.FromPath(path))
	require.NoError(t, err)
	require.NoError(t, p.OnDeactivate(context.Background()))

	assert.Equal(t, "![diagram.webp]("+srv.URL+"/file/uploaded.webp)", md)
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlugin_DeactivateHonoursContext(t *testing.T) {
	p := New(config.NewFileStore(filepath.Join(t.TempDir(), "none.json")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Nothing is pending, so either branch of the select may win.
	err := p.OnDeactivate(ctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestSettingsFields(t *testing.T) {
	cfg := config.Default()
	cfg.AuthCode = "abcdefgh"

	fields := Fields(cfg)
	require.Len(t, fields, len(config.Keys))
	for i, f := range fields {
		assert.Equal(t, config.Keys[i], f.Key)
	}
	assert.Equal(t, "ab****gh", fields[0].Value)
	assert.Equal(t, FieldPassword, fields[0].Kind)
	assert.Equal(t, config.DefaultUploadTimeoutMs, fields[6].Value)
}
