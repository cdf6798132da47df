package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Run("known levels", func(tt *testing.T) {
		lvl, err := ParseLevel("DEBUG")
		assert.NoError(tt, err)
		assert.Equal(tt, zapcore.DebugLevel, lvl)

		lvl, err = ParseLevel("warn")
		assert.NoError(tt, err)
		assert.Equal(tt, zapcore.WarnLevel, lvl)
	})

	t.Run("empty defaults to info", func(tt *testing.T) {
		lvl, err := ParseLevel("")
		assert.NoError(tt, err)
		assert.Equal(tt, zapcore.InfoLevel, lvl)
	})

	t.Run("unknown level errors", func(tt *testing.T) {
		_, err := ParseLevel("chatty")
		assert.Error(tt, err)
	})
}

func TestNew(t *testing.T) {
	l, err := New("debug")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("error")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
}
