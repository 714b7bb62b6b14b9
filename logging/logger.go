package logging

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a JSON logger on stdout and replaces the global zap logger. Messages are counted per level on the
// given registerer.
func NewLogger(cfg Config, reg prometheus.Registerer, metricsNamespace string) *zap.Logger {
	logger := newLogger(cfg, zapcore.Lock(os.Stdout), reg, metricsNamespace)
	zap.ReplaceGlobals(logger)

	return logger
}

// NewBootstrapLogger is used until the configuration is loaded and the actual logger can be built
func NewBootstrapLogger() *zap.Logger {
	var cfg Config
	cfg.SetDefaults()
	return newLogger(cfg, zapcore.Lock(os.Stdout), nil, "")
}

func newLogger(cfg Config, out io.Writer, reg prometheus.Registerer, metricsNamespace string) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	// Parse log level text to zap.LogLevel. Error check isn't required because the input is already validated.
	level := zap.NewAtomicLevel()
	_ = level.UnmarshalText([]byte(cfg.Level))

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(out),
		level,
	)
	if reg != nil {
		core = zapcore.RegisterHooks(core, prometheusHook(reg, metricsNamespace))
	}

	return zap.New(core)
}

// prometheusHook is a hook for the zap library which exposes Prometheus counters for various log levels.
func prometheusHook(reg prometheus.Registerer, metricsNamespace string) func(zapcore.Entry) error {
	messageCounterVec := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "log_messages_total",
		Help:      "Total number of log messages by log level emitted during the run.",
	}, []string{"level"})

	// Initialize counters for all supported log levels so that they expose 0 for each level on startup
	supportedLevels := []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
		zapcore.FatalLevel,
		zapcore.PanicLevel,
	}
	for _, level := range supportedLevels {
		messageCounterVec.WithLabelValues(level.String())
	}

	return func(entry zapcore.Entry) error {
		messageCounterVec.WithLabelValues(entry.Level.String()).Inc()
		return nil
	}
}
