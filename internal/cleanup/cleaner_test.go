package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asset.webp")
	require.NoError(t, os.WriteFile(path, []byte("webp"), 0o600))
	return path
}

func TestClean_RemovesFile(t *testing.T) {
	path := writeTemp(t)
	c := New()

	c.Clean(path)
	c.Wait()

	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestClean_Idempotent(t *testing.T) {
	path := writeTemp(t)
	c := New()

	var warnings []*Warning
	var mu sync.Mutex
	c.OnWarning = func(w *Warning) {
		mu.Lock()
		warnings = append(warnings, w)
		mu.Unlock()
	}

	c.Clean(path)
	c.Clean(path)
	c.Wait()
	c.Clean(path)
	c.Wait()

	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, warnings)
}

func TestClean_MissingAndEmptyPaths(t *testing.T) {
	c := New()
	called := false
	c.remove = func(string) error {
		called = true
		return nil
	}

	c.Clean("")
	c.Clean(filepath.Join(t.TempDir(), "never-created.webp"))
	c.Wait()

	assert.False(t, called)
}

func TestClean_FailureIsOnlyAWarning(t *testing.T) {
	path := writeTemp(t)
	c := New()
	c.remove = func(string) error {
		return os.ErrPermission
	}

	var got *Warning
	c.OnWarning = func(w *Warning) { got = w }

	assert.NotPanics(t, func() {
		c.Clean(path)
		c.Wait()
	})
	require.NotNil(t, got)
	assert.Equal(t, path, got.Path)
	assert.ErrorIs(t, got, os.ErrPermission)
}
