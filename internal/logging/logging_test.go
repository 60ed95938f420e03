package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewAndSetLevel(t *testing.T) {
	log, lvl, err := New("warn")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, zapcore.WarnLevel, lvl.Level())

	SetLevel(lvl, "debug")
	assert.Equal(t, zapcore.DebugLevel, lvl.Level())

	SetLevel(lvl, "loud")
	assert.Equal(t, zapcore.DebugLevel, lvl.Level())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l)

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}
