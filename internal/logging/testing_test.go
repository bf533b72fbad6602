package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_Creation(t *testing.T) {
	tl := NewTestLogger()
	assert.NotNil(t, tl.Logger)
	assert.NotNil(t, tl.observed)
}

func TestTestLogger_AssertLogged(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "transition applied", zap.String("to", "Lattice"))
	tl.AssertLogged(t, zapcore.InfoLevel, "transition applied")
}

func TestTestLogger_AssertNotLogged(t *testing.T) {
	tl := NewTestLogger()
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "should not exist")
}

func TestTestLogger_AssertField(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "tick", zap.String("outcome", "CONTINUE"))
	tl.AssertField(t, "tick", "outcome", "CONTINUE")
}

func TestTestLogger_AssertNoSecrets(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "safe", zap.String("phase", "Ignition"))
	tl.AssertNoSecrets(t)
}

func TestTestLogger_Reset(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "before reset")
	assert.Len(t, tl.All(), 1)
	tl.Reset()
	assert.Empty(t, tl.All())
}
