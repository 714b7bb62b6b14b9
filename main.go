package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cloudhut/kafka-lag-reporter/collector"
	"github.com/cloudhut/kafka-lag-reporter/influx"
	"github.com/cloudhut/kafka-lag-reporter/kafka"
	"github.com/cloudhut/kafka-lag-reporter/logging"
	"github.com/cloudhut/kafka-lag-reporter/reporter"
	"github.com/cloudhut/kafka-lag-reporter/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	startupLogger := logging.NewBootstrapLogger()

	cfg, err := newConfig(startupLogger, args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		startupLogger.Error("failed to parse config", zap.Error(err))
		return 1
	}

	metrics := telemetry.NewRunMetrics(cfg.Telemetry.Namespace, reporter.Stages()...)
	logger := logging.NewLogger(cfg.Logger, metrics.Registry(), cfg.Telemetry.Namespace)
	defer func() { _ = logger.Sync() }()
	logger.Info("started kafka lag reporter",
		zap.String("consumer_group", cfg.Collector.Group),
		zap.String("scrape_mode", cfg.Collector.ScrapeMode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pusher := telemetry.NewPusher(cfg.Telemetry, logger, metrics)
	// Run metrics are pushed regardless of the outcome, a cancelled run context must not prevent that
	defer pusher.Push(context.Background(), cfg.Collector.Group)

	svc, closeReporter, err := newReporter(ctx, cfg, logger, metrics)
	if err != nil {
		stage := reporter.StageCollect
		var stageErr *reporter.StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		logger.Error("failed to set up reporter", zap.String("stage", string(stage)), zap.Error(err))
		metrics.ObserveFailure(0, string(stage))
		return 1
	}
	defer closeReporter()

	err = svc.Run(ctx)
	if err != nil {
		return 1
	}

	return 0
}

// newReporter wires the lag source of the configured scrape mode to the influx publisher. Setup errors are returned
// as *reporter.StageError of the stage they belong to. The returned func releases all resources.
func newReporter(ctx context.Context, cfg Config, logger *zap.Logger, observer reporter.RunObserver) (*reporter.Service, func(), error) {
	source, closeSource, err := newSource(ctx, cfg, logger)
	if err != nil {
		return nil, nil, &reporter.StageError{Stage: reporter.StageCollect, Err: err}
	}

	publisher, err := influx.NewPublisher(cfg.Influx, logger)
	if err != nil {
		closeSource()
		return nil, nil, &reporter.StageError{Stage: reporter.StageSubmit, Err: err}
	}
	closeAll := func() {
		_ = publisher.Close()
		closeSource()
	}

	svc, err := reporter.NewService(cfg.Reporter, logger, cfg.Collector.Group, source, publisher, observer)
	if err != nil {
		closeAll()
		return nil, nil, &reporter.StageError{Stage: reporter.StageCollect, Err: err}
	}

	return svc, closeAll, nil
}

// newSource creates the lag source of the configured scrape mode. The returned func releases its resources.
func newSource(ctx context.Context, cfg Config, logger *zap.Logger) (reporter.Source, func(), error) {
	if cfg.Collector.ScrapeMode != collector.ScrapeModeAdminAPI {
		return reporter.NewToolSource(collector.NewTool(cfg.Collector, logger)), func() {}, nil
	}

	kafkaSvc, err := kafka.NewService(cfg.Kafka, logger)
	if err != nil {
		return nil, nil, err
	}
	err = kafkaSvc.TestConnection(ctx)
	if err != nil {
		kafkaSvc.Close()
		return nil, nil, err
	}

	return reporter.NewAdminSource(kafkaSvc, cfg.Collector.Group), kafkaSvc.Close, nil
}
