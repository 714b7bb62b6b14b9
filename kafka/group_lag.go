package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/twmb/franz-go/pkg/kadm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudhut/kafka-lag-reporter/lag"
)

// GroupLag describes the lag of a single consumer group via the Admin API. Committed offsets and the log end offsets
// are requested concurrently, the result contains one record per partition the group has committed an offset for,
// sorted by topic and partition.
func (s *Service) GroupLag(ctx context.Context, group string) ([]lag.Record, error) {
	admClient := kadm.NewClient(s.Client)

	var committed kadm.OffsetResponses
	var endOffsets kadm.ListedOffsets

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		res, err := admClient.FetchOffsets(egCtx, group)
		if err != nil {
			return fmt.Errorf("failed to fetch committed offsets of group '%v': %w", group, err)
		}
		committed = res
		return nil
	})
	eg.Go(func() error {
		res, err := s.listEndOffsets(egCtx, admClient)
		if err != nil {
			return err
		}
		endOffsets = res
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if len(committed) == 0 {
		s.logger.Warn("consumer group has no committed offsets", zap.String("consumer_group", group))
	}

	return groupLag(group, committed, endOffsets)
}

func (s *Service) listEndOffsets(ctx context.Context, admClient *kadm.Client) (kadm.ListedOffsets, error) {
	listedOffsets, err := admClient.ListEndOffsets(ctx)
	if err == nil {
		return listedOffsets, nil
	}

	var se *kadm.ShardErrors
	if !errors.As(err, &se) {
		return nil, fmt.Errorf("failed to list end offsets: %w", err)
	}
	if se.AllFailed {
		return nil, fmt.Errorf("failed to list end offsets, all shard responses failed: %w", err)
	}

	// Partial responses are fine as long as the group's partitions are covered, which groupLag verifies
	for _, shardErr := range se.Errs {
		s.logger.Warn("shard error for listing end offsets",
			zap.Int32("broker_id", shardErr.Broker.NodeID),
			zap.Error(shardErr.Err))
	}

	return listedOffsets, nil
}

// groupLag joins committed group offsets with the partitions' log end offsets. Partitions without a committed offset
// are skipped. Lag can't be negative, a commit might be newer than the listed end offset because both are fetched
// independently.
func groupLag(group string, committed kadm.OffsetResponses, endOffsets kadm.ListedOffsets) ([]lag.Record, error) {
	records := make([]lag.Record, 0)
	for topic, partitions := range committed {
		for partitionID, offset := range partitions {
			if offset.Err != nil {
				return nil, fmt.Errorf("failed to fetch committed offset of topic '%v' partition %d: %w",
					topic, partitionID, offset.Err)
			}
			if offset.At < 0 {
				continue
			}

			end, exists := endOffsets[topic][partitionID]
			if !exists {
				return nil, fmt.Errorf("no log end offset known for topic '%v' partition %d", topic, partitionID)
			}
			if end.Err != nil {
				return nil, fmt.Errorf("failed to list log end offset of topic '%v' partition %d: %w",
					topic, partitionID, end.Err)
			}

			partitionLag := end.Offset - offset.At
			if partitionLag < 0 {
				partitionLag = 0
			}
			records = append(records, lag.Record{
				Group:         group,
				Topic:         topic,
				Partition:     partitionID,
				CurrentOffset: offset.At,
				LogEndOffset:  end.Offset,
				Lag:           partitionLag,
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Topic != records[j].Topic {
			return records[i].Topic < records[j].Topic
		}
		return records[i].Partition < records[j].Partition
	})

	return records, nil
}
