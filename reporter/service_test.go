package reporter

import (
	"context"
	"errors"
	"testing"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloudhut/kafka-lag-reporter/influx"
	"github.com/cloudhut/kafka-lag-reporter/lag"
)

type staticCollector struct {
	lines []string
	err   error
}

func (c staticCollector) Collect(context.Context) ([]string, error) {
	return c.lines, c.err
}

type staticDescriber struct {
	records []lag.Record
	err     error
	group   string
}

func (d *staticDescriber) GroupLag(_ context.Context, group string) ([]lag.Record, error) {
	d.group = group
	return d.records, d.err
}

type recordingPublisher struct {
	calls [][]lag.Record
	err   error
}

func (p *recordingPublisher) Publish(records []lag.Record) error {
	p.calls = append(p.calls, records)
	return p.err
}

type recordingObserver struct {
	successCount int
	recordCount  int
	failedStage  string
}

func (o *recordingObserver) ObserveSuccess(_ time.Duration, recordCount int) {
	o.successCount++
	o.recordCount = recordCount
}

func (o *recordingObserver) ObserveFailure(_ time.Duration, stage string) {
	o.failedStage = stage
}

func newTestService(t *testing.T, source Source, publisher Publisher, observer RunObserver) *Service {
	t.Helper()

	var cfg Config
	cfg.SetDefaults()
	svc, err := NewService(cfg, zap.NewNop(), "g1", source, publisher, observer)
	require.NoError(t, err)
	return svc
}

func TestService_Run_EndToEnd(t *testing.T) {
	collector := staticCollector{lines: []string{
		"GROUP, TOPIC, PARTITION, CURRENT-OFFSET, LOG-END-OFFSET, LAG",
		"g1, t1, 0, 100, 150, 50",
	}}
	publisher := &recordingPublisher{}
	observer := &recordingObserver{}

	err := newTestService(t, NewToolSource(collector), publisher, observer).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, publisher.calls, 1, "exactly one batch write")
	assert.Equal(t, []lag.Record{
		{Group: "g1", Topic: "t1", Partition: 0, CurrentOffset: 100, LogEndOffset: 150, Lag: 50},
	}, publisher.calls[0])
	assert.Equal(t, 1, observer.successCount)
	assert.Equal(t, 1, observer.recordCount)
}

type capturingBatchWriter struct {
	batches []client.BatchPoints
}

func (w *capturingBatchWriter) Write(bp client.BatchPoints) error {
	w.batches = append(w.batches, bp)
	return nil
}

func (w *capturingBatchWriter) Close() error {
	return nil
}

func TestService_Run_ToolToInflux(t *testing.T) {
	collector := staticCollector{lines: []string{
		"GROUP, TOPIC, PARTITION, CURRENT-OFFSET, LOG-END-OFFSET, LAG",
		"g1, t1, 0, 100, 150, 50",
	}}
	writer := &capturingBatchWriter{}
	influxCfg := influx.Config{Host: "influxdb", Port: 8086, Username: "u", Password: "p", Database: "kafka", Precision: "ns"}
	publisher := influx.NewPublisherWithWriter(influxCfg, zap.NewNop(), writer)

	err := newTestService(t, NewToolSource(collector), publisher, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, writer.batches, 1, "exactly one write call")
	points := writer.batches[0].Points()
	require.Len(t, points, 1)
	assert.Equal(t, influx.Measurement, points[0].Name())
	assert.Equal(t, map[string]string{"topic": "t1", "group": "g1", "partition": "0"}, points[0].Tags())

	fields, err := points[0].Fields()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"current_offset": int64(100),
		"log_end_offset": int64(150),
		"lag":            int64(50),
	}, fields)
}

func TestService_Run_StageErrors(t *testing.T) {
	tests := []struct {
		name       string
		collector  staticCollector
		publishErr error
		wantStage  Stage
		wantWrites int
	}{
		{
			name:       "collection failure",
			collector:  staticCollector{err: errors.New("exit status 1")},
			wantStage:  StageCollect,
			wantWrites: 0,
		},
		{
			name:       "parse failure publishes nothing",
			collector:  staticCollector{lines: []string{"g1, t1, 0, 100, 150, 50", "g1, t1, 1, 100"}},
			wantStage:  StageParse,
			wantWrites: 0,
		},
		{
			name:       "submission failure",
			collector:  staticCollector{lines: []string{"g1, t1, 0, 100, 150, 50"}},
			publishErr: errors.New("connection refused"),
			wantStage:  StageSubmit,
			wantWrites: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &recordingPublisher{err: tt.publishErr}
			observer := &recordingObserver{}

			err := newTestService(t, NewToolSource(tt.collector), publisher, observer).Run(context.Background())
			require.Error(t, err)

			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, tt.wantStage, stageErr.Stage)
			assert.Len(t, publisher.calls, tt.wantWrites)
			assert.Equal(t, string(tt.wantStage), observer.failedStage)
			assert.Equal(t, 0, observer.successCount)
		})
	}
}

func TestService_Run_ParseErrorKeepsCause(t *testing.T) {
	collector := staticCollector{lines: []string{"g1, t1, zero, 100, 150, 50"}}
	err := newTestService(t, NewToolSource(collector), &recordingPublisher{}, nil).Run(context.Background())

	var parseErr *lag.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 1, parseErr.Line)
}

func TestService_Run_NothingToPublish(t *testing.T) {
	collector := staticCollector{lines: []string{"GROUP, TOPIC, PARTITION, CURRENT-OFFSET, LOG-END-OFFSET, LAG"}}
	publisher := &recordingPublisher{}
	observer := &recordingObserver{}

	err := newTestService(t, NewToolSource(collector), publisher, observer).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, publisher.calls)
	assert.Equal(t, 1, observer.successCount)
	assert.Equal(t, 0, observer.recordCount)
}

func TestService_Run_AdminSource(t *testing.T) {
	describer := &staticDescriber{records: []lag.Record{
		{Group: "g1", Topic: "orders", Partition: 0, CurrentOffset: 5, LogEndOffset: 7, Lag: 2},
		{Group: "g1", Topic: "__internal", Partition: 0},
	}}
	publisher := &recordingPublisher{}

	cfg := Config{AllowedTopics: []string{"/.*/"}, IgnoredTopics: []string{"/^__/"}}
	svc, err := NewService(cfg, zap.NewNop(), "g1", NewAdminSource(describer, "g1"), publisher, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, "g1", describer.group)
	require.Len(t, publisher.calls, 1)
	assert.Equal(t, []lag.Record{
		{Group: "g1", Topic: "orders", Partition: 0, CurrentOffset: 5, LogEndOffset: 7, Lag: 2},
	}, publisher.calls[0])
}

func TestService_Run_AdminSourceFailure(t *testing.T) {
	describer := &staticDescriber{err: errors.New("GROUP_AUTHORIZATION_FAILED")}
	err := newTestService(t, NewAdminSource(describer, "g1"), &recordingPublisher{}, nil).Run(context.Background())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageCollect, stageErr.Stage)
}
