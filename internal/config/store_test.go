package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_LoadMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	p, err := s.Load()
	require.NoError(t, err)

	c := Merge(p)
	assert.Equal(t, Default(), c)
}

func TestFileStore_LoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := `{"cfAuthCode":"token","cfServerCompress":false,"uploadTimeout":2500}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	p, err := NewFileStore(path).Load()
	require.NoError(t, err)
	c := Merge(p)

	assert.Equal(t, "token", c.AuthCode)
	assert.False(t, c.ServerCompress)
	assert.Equal(t, 2500*time.Millisecond, c.UploadTimeout)
	assert.Equal(t, DefaultDomain, c.Domain)
	assert.True(t, c.WebPLossless)
}

func TestFileStore_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestFileStore_EnvOverride(t *testing.T) {
	t.Setenv("IMGPASTE_CFAUTHCODE", "from-env")

	p, err := NewFileStore(filepath.Join(t.TempDir(), "none.json")).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", Merge(p).AuthCode)
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s := NewFileStore(path)

	want := Default()
	want.AuthCode = "k"
	want.UploadFolder = "blog/2024"
	want.ServerCompress = false
	want.UploadTimeout = 9 * time.Second
	want.WebPLossless = false

	require.NoError(t, s.Save(want))

	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, Merge(p))
}

func TestFileStore_SaveKeepsKeyCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	c := Default()
	c.AuthCode = "abc"
	require.NoError(t, NewFileStore(path).Save(c))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))

	for _, key := range Keys {
		assert.Contains(t, raw, key)
	}
	assert.Len(t, raw, len(Keys))
	assert.Equal(t, "abc", raw[KeyAuthCode])
	assert.NotContains(t, raw, "cfauthcode")
	assert.Equal(t, float64(DefaultUploadTimeoutMs), raw[KeyUploadTimeout])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestApply(t *testing.T) {
	c := Default()

	c, err := Apply(c, "cfauthcode", "  tok  ")
	require.NoError(t, err)
	assert.Equal(t, "tok", c.AuthCode)

	c, err = Apply(c, KeyUploadTimeout, "500")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, c.UploadTimeout)

	c, err = Apply(c, KeyWebPLossless, "false")
	require.NoError(t, err)
	assert.False(t, c.WebPLossless)

	c, err = Apply(c, KeyDomain, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDomain, c.Domain)

	tests := []struct {
		key, value string
	}{
		{KeyUploadTimeout, "-1"},
		{KeyUploadTimeout, "soon"},
		{KeyServerCompress, "maybe"},
		{KeyDomain, "ftp://x"},
		{"colour", "red"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			_, err := Apply(Default(), tt.key, tt.value)
			var cfgErr *ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
