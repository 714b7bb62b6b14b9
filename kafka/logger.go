package kafka

import (
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KgoZapLogger forwards franz-go client logs to zap. Info messages of the client are logged at debug level because
// they are mostly about connection handling.
type KgoZapLogger struct {
	logger *zap.SugaredLogger
}

// Level implements kgo.Logger. Filtering is left to the zap core.
func (k KgoZapLogger) Level() kgo.LogLevel {
	return kgo.LogLevelDebug
}

// Log implements kgo.Logger
func (k KgoZapLogger) Log(level kgo.LogLevel, msg string, keyvals ...interface{}) {
	switch level {
	case kgo.LogLevelError:
		k.logger.Errorw(msg, keyvals...)
	case kgo.LogLevelWarn:
		k.logger.Warnw(msg, keyvals...)
	case kgo.LogLevelInfo, kgo.LogLevelDebug:
		k.logger.Debugw(msg, keyvals...)
	}
}
