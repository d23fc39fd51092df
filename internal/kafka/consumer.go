package kafka

import (
	"context"
	"crypto/tls"
	"sync"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"go.uber.org/zap"
)

// Consumer feeds one pipeline. Offsets are committed only for records the
// pipeline hands back on the flushed channel.
type Consumer struct {
	name   string
	client *kgo.Client
	logger *zap.Logger
	joined atomic.Bool
}

func NewConsumer(name string, brokers []string, groupID string, topics []string, clientID string, fetchMaxBytes int32, tlsCfg *tls.Config, saslMech sasl.Mechanism, logger *zap.Logger) (*Consumer, error) {
	c := &Consumer{name: name, logger: logger}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.ClientID(clientID),
		kgo.FetchMaxBytes(fetchMaxBytes),
		kgo.DisableAutoCommit(),
		kgo.OnPartitionsAssigned(func(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
			c.joined.Store(true)
			logger.Info("partitions assigned", zap.String("consumer", name), zap.Any("partitions", assigned))
		}),
		kgo.OnPartitionsRevoked(func(_ context.Context, _ *kgo.Client, _ map[string][]int32) {
			c.joined.Store(false)
			logger.Info("partitions revoked", zap.String("consumer", name))
		}),
		kgo.OnPartitionsLost(func(_ context.Context, _ *kgo.Client, _ map[string][]int32) {
			c.joined.Store(false)
			logger.Warn("partitions lost", zap.String("consumer", name))
		}),
	}
	if tlsCfg != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsCfg))
	}
	if saslMech != nil {
		opts = append(opts, kgo.SASL(saslMech))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	c.client = client
	return c, nil
}

// Run fetches records and sends them to the records channel until ctx is
// done. It reads from flushed to commit offsets after successful DB writes.
// The caller must commitWg.Add(1) before starting Run; the committer calls
// Done once flushed is closed, so shutdown can wait for the last commit.
func (c *Consumer) Run(ctx context.Context, records chan<- []*kgo.Record, flushed <-chan []*kgo.Record, commitWg *sync.WaitGroup) {
	go func() {
		defer commitWg.Done()
		// Drain until the pipeline closes flushed so the final batch is
		// committed even after ctx is cancelled.
		for recs := range flushed {
			c.client.MarkCommitRecords(recs...)
			commitCtx := ctx
			if ctx.Err() != nil {
				commitCtx = context.Background()
			}
			if err := c.client.CommitMarkedOffsets(commitCtx); err != nil {
				c.logger.Error("commit offsets failed", zap.String("consumer", c.name), zap.Error(err))
			}
		}
	}()

	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, e := range errs {
				c.logger.Error("fetch error",
					zap.String("consumer", c.name),
					zap.String("topic", e.Topic),
					zap.Int32("partition", e.Partition),
					zap.Error(e.Err),
				)
			}
		}

		var batch []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			batch = append(batch, r)
		})

		if len(batch) > 0 {
			select {
			case records <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Consumer) IsJoined() bool {
	return c.joined.Load()
}

func (c *Consumer) Close() {
	c.client.Close()
}
