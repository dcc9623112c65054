package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beijizb/obsidian-image-beiji/internal/config"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "imgpaste "+Version)
	assert.Contains(t, out, "Git commit:")
}

func TestConfigSetAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	_, err := execute(t, "", "--config", path, "config", "set", "cfDomain", "https://img.example")
	require.NoError(t, err)

	out, err := execute(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "https://img.example")
	assert.Contains(t, out, "auth code is not configured")

	partial, err := config.NewFileStore(path).Load()
	require.NoError(t, err)
	require.NotNil(t, partial.Domain)
	assert.Equal(t, "https://img.example", *partial.Domain)
}

func TestConfigSetRejectsBadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	_, err := execute(t, "", "--config", path, "config", "set", "cfServerCompress", "sometimes")

	var cfgErr *config.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConfigAuthReadsPipedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	out, err := execute(t, "s3cret-code\n", "--config", path, "config", "auth")
	require.NoError(t, err)
	assert.NotContains(t, out, "s3cret-code")

	cfg := config.Merge(mustLoad(t, path))
	assert.Equal(t, "s3cret-code", cfg.AuthCode)
}

func TestConfigAuthRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	_, err := execute(t, "\n", "--config", path, "config", "auth")
	assert.Error(t, err)
}

func TestUploadWithoutAuthCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	_, err := execute(t, "", "--config", path, "upload", "/tmp/nothing.png")

	var cfgErr *config.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func mustLoad(t *testing.T, path string) config.Partial {
	t.Helper()
	p, err := config.NewFileStore(path).Load()
	require.NoError(t, err)
	return p
}
