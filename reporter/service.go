package reporter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloudhut/kafka-lag-reporter/lag"
)

// Publisher submits all records of a run in one batch
type Publisher interface {
	Publish(records []lag.Record) error
}

// RunObserver is notified about the outcome of a run
type RunObserver interface {
	ObserveSuccess(duration time.Duration, recordCount int)
	ObserveFailure(duration time.Duration, stage string)
}

// Service runs the reporting pipeline once: records are taken from the source, filtered by topic and written by the
// publisher.
type Service struct {
	Cfg    Config
	logger *zap.Logger

	group     string
	source    Source
	publisher Publisher
	observer  RunObserver
	filter    *topicFilter
}

func NewService(cfg Config, logger *zap.Logger, group string, source Source, publisher Publisher, observer RunObserver) (*Service, error) {
	filter, err := newTopicFilter(cfg)
	if err != nil {
		return nil, err
	}

	return &Service{
		Cfg:       cfg,
		logger:    logger,
		group:     group,
		source:    source,
		publisher: publisher,
		observer:  observer,
		filter:    filter,
	}, nil
}

// Run executes a single collection and submission. The first error aborts the run, it is returned as *StageError.
func (s *Service) Run(ctx context.Context) error {
	startedAt := time.Now()
	logger := s.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("consumer_group", s.group))

	count, err := s.run(ctx, logger)
	duration := time.Since(startedAt)
	if err != nil {
		stage := StageCollect
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		logger.Error("lag report failed",
			zap.String("stage", string(stage)),
			zap.Duration("duration", duration),
			zap.Error(err))
		if s.observer != nil {
			s.observer.ObserveFailure(duration, string(stage))
		}
		return err
	}

	logger.Info("lag report published",
		zap.Int("record_count", count),
		zap.Duration("duration", duration))
	if s.observer != nil {
		s.observer.ObserveSuccess(duration, count)
	}

	return nil
}

func (s *Service) run(ctx context.Context, logger *zap.Logger) (int, error) {
	records, err := s.source.Records(ctx)
	if err != nil {
		return 0, err
	}
	logger.Debug("collected lag records", zap.Int("record_count", len(records)))

	filtered := s.filter.Apply(records)
	if skipped := len(records) - len(filtered); skipped > 0 {
		logger.Debug("skipped records of filtered topics", zap.Int("skipped_count", skipped))
	}
	if len(filtered) == 0 {
		logger.Warn("no lag records to publish, skipping write")
		return 0, nil
	}

	err = s.publisher.Publish(filtered)
	if err != nil {
		return 0, &StageError{Stage: StageSubmit, Err: err}
	}

	return len(filtered), nil
}
