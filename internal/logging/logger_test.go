package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/vistta-org/fs/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, log.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, log.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, log.InfoLevel, ParseLevel("verbose"))
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.Logger{Level: "warn", Format: "logfmt"})

	logger.Info("scan complete")
	assert.Empty(t, buf.String())

	logger.Warn("event buffer full", "path", "a.txt")
	assert.Contains(t, buf.String(), "event buffer full")
	assert.Contains(t, buf.String(), "a.txt")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.Logger{Level: "debug", Format: "json"})

	logger.Debug("watch session started", "root", "/tmp")
	assert.Contains(t, buf.String(), `"msg":"watch session started"`)
	assert.Contains(t, buf.String(), `"root":"/tmp"`)
}
