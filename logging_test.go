package fieldquad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger(debug bool) (*DefaultLogger, *observer.ObservedLogs) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	core, logs := observer.New(level)
	return newDefaultLoggerFrom(zap.New(core), level, "fieldquad"), logs
}

func TestDefaultLogger_Levels(t *testing.T) {
	l, logs := observedLogger(false)

	l.Debugf("hidden %d", 1)
	l.Infof("frame %d", 2)
	l.Warnf("shader: %s", "unused variable")
	l.Errorf("map shared field: %v", "lost")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "frame 2", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "map shared field: lost", entries[2].Message)
	assert.Equal(t, "fieldquad", entries[0].LoggerName)
}

func TestDefaultLogger_SetDebug(t *testing.T) {
	l, logs := observedLogger(false)
	assert.False(t, l.DebugEnabled())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("phase %s", "quad")
	assert.Equal(t, 1, logs.FilterMessage("phase quad").Len())

	l.SetDebug(false)
	l.Debugf("again")
	assert.Equal(t, 0, logs.FilterMessage("again").Len())
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l, _ := observedLogger(false)
	assert.Same(t, l, OrNop(l))
}
