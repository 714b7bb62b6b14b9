package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestKgoZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := KgoZapLogger{logger: zap.New(core).Sugar()}

	logger.Log(kgo.LogLevelError, "unable to dial", "broker", "1")
	logger.Log(kgo.LogLevelWarn, "metadata refresh failed")
	logger.Log(kgo.LogLevelInfo, "immediate metadata update triggered")
	logger.Log(kgo.LogLevelNone, "dropped")

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "1", entries[0].ContextMap()["broker"])
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	}
}
