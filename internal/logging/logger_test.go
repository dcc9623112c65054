package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer Logger.SetLevel(logrus.InfoLevel)

	assert.True(t, SetLevel("DEBUG"))
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	assert.False(t, SetLevel("loud"))
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	assert.False(t, SetLevel("  "))
}

func TestForTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetFormat("text")

	SetFormat("json")
	For("publish").Info("hello")

	assert.Contains(t, buf.String(), `"component":"publish"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
