//go:build integration

package integrationtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	assertpkg "github.com/stretchr/testify/assert"
	requirepkg "github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/cloudhut/kafka-lag-reporter/kafka"
	"github.com/cloudhut/kafka-lag-reporter/lag"
	"github.com/cloudhut/kafka-lag-reporter/reporter"
)

type testLogConsumer struct{}

// Accept prints the log to stdout
func (lc testLogConsumer) Accept(l testcontainers.Log) {
	fmt.Print("CONTAINER: " + string(l.Content))
}

const (
	testTopic = "orders"
	testGroup = "order-processor"
)

type Suite struct {
	suite.Suite

	redpanda *redpanda.Container
	seeds    []string

	kafkaCl    *kgo.Client
	kafkaAdmCl *kadm.Client
}

func TestSuite(t *testing.T) {
	suite.Run(t, &Suite{})
}

func (s *Suite) SetupSuite() {
	t := s.T()
	require := requirepkg.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := redpanda.RunContainer(ctx,
		testcontainers.WithImage("redpandadata/redpanda:v23.3.5"),
		testcontainers.WithLogConsumers(testLogConsumer{}),
	)
	require.NoError(err)
	s.redpanda = container

	seed, err := container.KafkaSeedBroker(ctx)
	require.NoError(err)
	s.seeds = []string{seed}

	kafkaCl, err := kgo.NewClient(
		kgo.SeedBrokers(s.seeds...),
		kgo.RecordPartitioner(kgo.ManualPartitioner()),
	)
	require.NoError(err)
	s.kafkaCl = kafkaCl
	s.kafkaAdmCl = kadm.NewClient(kafkaCl)

	// Partition 0 gets 10 records and a commit at offset 6, partition 1 gets 4 records but no commit
	createRes, err := s.kafkaAdmCl.CreateTopics(ctx, 2, 1, nil, testTopic)
	require.NoError(err)
	for _, res := range createRes {
		require.NoError(res.Err)
	}

	for partition, count := range map[int32]int{0: 10, 1: 4} {
		for i := 0; i < count; i++ {
			rec := &kgo.Record{Topic: testTopic, Partition: partition, Value: []byte(fmt.Sprintf("order-%d", i))}
			require.NoError(kafkaCl.ProduceSync(ctx, rec).FirstErr())
		}
	}

	offsets := make(kadm.Offsets)
	offsets.Add(kadm.Offset{Topic: testTopic, Partition: 0, At: 6, LeaderEpoch: -1})
	commitRes, err := s.kafkaAdmCl.CommitOffsets(ctx, testGroup, offsets)
	require.NoError(err)
	require.NoError(commitRes.Error())
}

func (s *Suite) TearDownSuite() {
	t := s.T()
	assert := assertpkg.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	s.kafkaCl.Close()
	assert.NoError(s.redpanda.Terminate(ctx))
}

func (s *Suite) newKafkaService() *kafka.Service {
	require := requirepkg.New(s.T())

	var cfg kafka.Config
	cfg.SetDefaults()
	cfg.Brokers = s.seeds

	svc, err := kafka.NewService(cfg, zap.NewNop())
	require.NoError(err)
	s.T().Cleanup(svc.Close)
	return svc
}

func (s *Suite) TestGroupLag() {
	t := s.T()
	require := requirepkg.New(t)
	assert := assertpkg.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := s.newKafkaService()
	require.NoError(svc.TestConnection(ctx))

	records, err := svc.GroupLag(ctx, testGroup)
	require.NoError(err)
	assert.Equal([]lag.Record{
		{Group: testGroup, Topic: testTopic, Partition: 0, CurrentOffset: 6, LogEndOffset: 10, Lag: 4},
	}, records)
}

type capturingPublisher struct {
	records []lag.Record
}

func (p *capturingPublisher) Publish(records []lag.Record) error {
	p.records = append(p.records, records...)
	return nil
}

func (s *Suite) TestReporterAdminSource() {
	t := s.T()
	require := requirepkg.New(t)
	assert := assertpkg.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var cfg reporter.Config
	cfg.SetDefaults()
	publisher := &capturingPublisher{}
	source := reporter.NewAdminSource(s.newKafkaService(), testGroup)

	svc, err := reporter.NewService(cfg, zap.NewNop(), testGroup, source, publisher, nil)
	require.NoError(err)
	require.NoError(svc.Run(ctx))

	require.Len(publisher.records, 1)
	assert.Equal(int64(4), publisher.records[0].Lag)
}
