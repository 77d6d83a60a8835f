package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("world", &buf, WARN)

	l.Info("не должно попасть %d", 1)
	l.Warn("чанк %d выгружен", 7)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [world] чанк 7 выгружен")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestManagerReturnsSameLogger(t *testing.T) {
	SetLogDir("")
	defer SetLogDir("logs")

	lm := GetLoggerManager()
	a, err := lm.GetLogger("test-component")
	require.NoError(t, err)
	b, err := lm.GetLogger("test-component")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Contains(t, lm.ListComponents(), "test-component")

	require.NoError(t, lm.SetLogLevel("test-component", ERROR, ERROR))
	assert.Error(t, lm.SetLogLevel("missing", INFO, INFO))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("ничего") })
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	assert.Contains(t, HexDump([]byte("VXCK")), "56 58 43 4b")
}
