package influx

import (
	"fmt"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cloudhut/kafka-lag-reporter/lag"
)

// BatchWriter submits a batch of points in a single write call. client.Client satisfies it.
type BatchWriter interface {
	Write(bp client.BatchPoints) error
	Close() error
}

// Publisher writes lag records as one batch into InfluxDB
type Publisher struct {
	cfg    Config
	logger *zap.Logger
	writer BatchWriter

	now func() time.Time
}

// NewPublisher creates an HTTP client for the configured InfluxDB. No connection is established until Publish is
// called.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	httpCfg := client.HTTPConfig{
		Addr:               cfg.Addr(),
		Username:           cfg.Username,
		Password:           cfg.Password,
		UserAgent:          "kafka-lag-reporter",
		InsecureSkipVerify: cfg.InsecureSkipTLSVerify,
	}

	httpClient, err := client.NewHTTPClient(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create influxdb client: %w", err)
	}

	return NewPublisherWithWriter(cfg, logger, httpClient), nil
}

// NewPublisherWithWriter creates a publisher that submits its batches to the given writer
func NewPublisherWithWriter(cfg Config, logger *zap.Logger, writer BatchWriter) *Publisher {
	return &Publisher{
		cfg:    cfg,
		logger: logger.With(zap.String("source", "influxdb")),
		writer: writer,
		now:    time.Now,
	}
}

// Publish converts the records into points and writes them in a single batch. Either the whole batch is accepted or
// an error is returned, nothing is retried.
func (p *Publisher) Publish(records []lag.Record) error {
	bp, err := p.batch(BuildEntries(records, p.now))
	if err != nil {
		return err
	}

	err = p.writer.Write(bp)
	if err != nil {
		return errors.Wrapf(err, "failed to write %d points to influxdb database '%v'", len(bp.Points()), p.cfg.Database)
	}

	p.logger.Debug("wrote points to influxdb",
		zap.String("database", p.cfg.Database),
		zap.Int("point_count", len(bp.Points())))

	return nil
}

func (p *Publisher) batch(entries []Entry) (client.BatchPoints, error) {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:        p.cfg.Database,
		RetentionPolicy: p.cfg.RetentionPolicy,
		Precision:       p.cfg.Precision,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create batch")
	}

	for _, entry := range entries {
		point, err := client.NewPoint(entry.Measurement, entry.Tags, entry.Fields, entry.Time)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create point for topic '%v' partition %v",
				entry.Tags["topic"], entry.Tags["partition"])
		}
		bp.AddPoint(point)
	}

	return bp, nil
}

// Close releases the idle connections of the underlying client
func (p *Publisher) Close() error {
	return p.writer.Close()
}
