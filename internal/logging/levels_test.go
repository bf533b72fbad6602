package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestTraceLevelSitsBelowDebug(t *testing.T) {
	assert.Equal(t, int8(-2), int8(TraceLevel))
	assert.Equal(t, int8(-1), int8(zapcore.DebugLevel))
	// Without zapcore.RegisterLevel, String() renders the raw value.
	assert.Contains(t, TraceLevel.String(), "-2")
}

func TestTraceLevelEnabler(t *testing.T) {
	tests := []struct {
		name           string
		configLevel    zapcore.Level
		logLevel       zapcore.Level
		shouldBeLogged bool
	}{
		{"trace logged when trace enabled", TraceLevel, TraceLevel, true},
		{"debug logged when trace enabled", TraceLevel, zapcore.DebugLevel, true},
		{"trace not logged when debug enabled", zapcore.DebugLevel, TraceLevel, false},
		{"debug logged when debug enabled", zapcore.DebugLevel, zapcore.DebugLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldBeLogged, tt.configLevel.Enabled(tt.logLevel))
		})
	}
}

func TestLevelFromString_ValidLevels(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"trace", TraceLevel},
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"dpanic", zapcore.DPanicLevel},
		{"panic", zapcore.PanicLevel},
		{"fatal", zapcore.FatalLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := LevelFromString(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFromString_CaseInsensitive(t *testing.T) {
	for _, input := range []string{"INFO", "InFo"} {
		level, err := LevelFromString(input)
		assert.NoError(t, err)
		assert.Equal(t, zapcore.InfoLevel, level)
	}
}

func TestLevelFromString_EmptyString(t *testing.T) {
	// Empty string defaults to info without error (zap behavior).
	level, err := LevelFromString("")
	assert.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)
}

func TestLevelFromString_InvalidLevel(t *testing.T) {
	for _, input := range []string{"invalid", "123", "info extra"} {
		t.Run(input, func(t *testing.T) {
			level, err := LevelFromString(input)
			assert.Error(t, err)
			assert.Equal(t, zapcore.InfoLevel, level)
		})
	}
}
