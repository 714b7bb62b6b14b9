package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Pusher pushes the run metrics to a Prometheus Pushgateway
type Pusher struct {
	cfg     Config
	logger  *zap.Logger
	metrics *RunMetrics
}

func NewPusher(cfg Config, logger *zap.Logger, metrics *RunMetrics) *Pusher {
	return &Pusher{
		cfg:     cfg,
		logger:  logger.With(zap.String("source", "pushgateway")),
		metrics: metrics,
	}
}

// Push replaces all metrics of this job and consumer group on the Pushgateway. Failing to push is logged but not
// returned because it must not change the outcome of the run.
func (p *Pusher) Push(ctx context.Context, group string) {
	if p.cfg.PushgatewayURL == "" {
		return
	}

	err := push.New(p.cfg.PushgatewayURL, p.cfg.Job).
		Gatherer(p.metrics.Registry()).
		Grouping("consumer_group", group).
		PushContext(ctx)
	if err != nil {
		p.logger.Warn("failed to push run metrics", zap.String("url", p.cfg.PushgatewayURL), zap.Error(err))
		return
	}
	p.logger.Debug("pushed run metrics", zap.String("url", p.cfg.PushgatewayURL))
}
