package reporter

import (
	"context"

	"github.com/cloudhut/kafka-lag-reporter/lag"
)

// LineCollector returns the raw describe output of a consumer group
type LineCollector interface {
	Collect(ctx context.Context) ([]string, error)
}

// GroupDescriber returns typed lag records of a consumer group without a text representation in between
type GroupDescriber interface {
	GroupLag(ctx context.Context, group string) ([]lag.Record, error)
}

// Source yields the lag records of one run. Errors are returned as *StageError.
type Source interface {
	Records(ctx context.Context) ([]lag.Record, error)
}

type toolSource struct {
	collector LineCollector
}

// NewToolSource collects the describe output and parses it into records
func NewToolSource(collector LineCollector) Source {
	return &toolSource{collector: collector}
}

func (s *toolSource) Records(ctx context.Context) ([]lag.Record, error) {
	lines, err := s.collector.Collect(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageCollect, Err: err}
	}

	records, err := lag.Parse(lines)
	if err != nil {
		return nil, &StageError{Stage: StageParse, Err: err}
	}

	return records, nil
}

type adminSource struct {
	describer GroupDescriber
	group     string
}

// NewAdminSource describes the group using the Kafka Admin API
func NewAdminSource(describer GroupDescriber, group string) Source {
	return &adminSource{describer: describer, group: group}
}

func (s *adminSource) Records(ctx context.Context) ([]lag.Record, error) {
	records, err := s.describer.GroupLag(ctx, s.group)
	if err != nil {
		return nil, &StageError{Stage: StageCollect, Err: err}
	}
	return records, nil
}
