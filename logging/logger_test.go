package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, "info", cfg.Level)
	require.NoError(t, cfg.Validate())

	cfg.Level = "debug"
	require.NoError(t, cfg.Validate())

	cfg.Level = "verbose"
	require.Error(t, cfg.Validate())
}

// messageCount returns the value of the log message counter for the given level
func messageCount(t *testing.T, reg *prometheus.Registry, level string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "lag_reporter_log_messages_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "level" && label.GetValue() == level {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("no log message counter for level %v", level)
	return 0
}

func TestNewLogger_CountsMessagesPerLevel(t *testing.T) {
	reg := prometheus.NewRegistry()
	var out bytes.Buffer
	logger := newLogger(Config{Level: "info"}, &out, reg, "lag_reporter")

	logger.Debug("filtered by level")
	logger.Info("first")
	logger.Info("second")
	logger.Warn("third")

	assert.Equal(t, 2.0, messageCount(t, reg, "info"))
	assert.Equal(t, 1.0, messageCount(t, reg, "warn"))
	assert.Equal(t, 0.0, messageCount(t, reg, "debug"))
	assert.Equal(t, 0.0, messageCount(t, reg, "error"))
}

func TestNewLogger_WritesJSON(t *testing.T) {
	var out bytes.Buffer
	logger := newLogger(Config{Level: "info"}, &out, nil, "")
	logger.Info("published lag")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "published lag", line["msg"])
	assert.Contains(t, line, "ts")
}
