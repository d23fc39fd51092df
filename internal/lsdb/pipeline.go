package lsdb

import (
	"context"
	"strconv"
	"time"

	"github.com/route-beacon/isis-ingester/internal/capture"
	"github.com/route-beacon/isis-ingester/internal/isis"
	"github.com/route-beacon/isis-ingester/internal/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go4.org/netipx"
)

const finalFlushTimeout = 10 * time.Second

// BatchWriter applies LSP updates in order. *Writer is the production
// implementation.
type BatchWriter interface {
	ApplyBatch(ctx context.Context, updates []*LSPUpdate) error
}

type Pipeline struct {
	writer          BatchWriter
	batchSize       int
	flushInterval   time.Duration
	maxPayloadBytes int
	watch           *netipx.IPSet
	logger          *zap.Logger
}

// NewPipeline builds the state pipeline. watch may be nil.
func NewPipeline(writer BatchWriter, batchSize, flushIntervalMs, maxPayloadBytes int, watch *netipx.IPSet, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		writer:          writer,
		batchSize:       batchSize,
		flushInterval:   time.Duration(flushIntervalMs) * time.Millisecond,
		maxPayloadBytes: maxPayloadBytes,
		watch:           watch,
		logger:          logger,
	}
}

// Run processes records from the channel until context is cancelled.
// Records are handed back on flushed once the batch they belong to is
// applied.
func (p *Pipeline) Run(ctx context.Context, records <-chan []*kgo.Record, flushed chan<- []*kgo.Record) {
	var batch []*LSPUpdate
	var batchRecords []*kgo.Record
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	finalFlush := func() {
		if len(batchRecords) == 0 {
			return
		}
		fctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
		defer cancel()
		if err := p.flush(fctx, batch, batchRecords, flushed); err != nil {
			p.logger.Error("final flush failed", zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			finalFlush()
			return

		case recs, ok := <-records:
			if !ok {
				finalFlush()
				return
			}

			for _, rec := range recs {
				if u := p.processRecord(rec); u != nil {
					batch = append(batch, u)
				}
				// Track every record for commit, including filtered and
				// unparseable ones.
				batchRecords = append(batchRecords, rec)
			}

			if len(batchRecords) >= p.batchSize {
				if err := p.flush(ctx, batch, batchRecords, flushed); err != nil {
					p.logger.Error("batch flush failed", zap.Error(err))
				} else {
					batch = nil
					batchRecords = nil
				}
			}

			if len(batchRecords) >= p.batchSize*10 {
				p.logger.Error("dropping oversized batch after repeated flush failures",
					zap.Int("dropped_records", len(batchRecords)),
					zap.Int("dropped_lsps", len(batch)),
				)
				batch = nil
				batchRecords = nil
			}

		case <-ticker.C:
			if len(batchRecords) > 0 {
				if err := p.flush(ctx, batch, batchRecords, flushed); err != nil {
					p.logger.Error("timer flush failed", zap.Error(err))
				} else {
					batch = nil
					batchRecords = nil
				}
			}
		}
	}
}

func (p *Pipeline) processRecord(rec *kgo.Record) *LSPUpdate {
	collector := capture.CollectorFromKey(rec.Key)

	frame, err := capture.DecodeFrame(rec.Value, p.maxPayloadBytes)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("frame", "decode").Inc()
		p.logger.Warn("failed to decode capture frame",
			zap.String("topic", rec.Topic),
			zap.String("collector", collector),
			zap.Error(err),
		)
		return nil
	}

	pkt, _, err := isis.Parse(frame.PDU)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("isis", capture.ErrorReason(err)).Inc()
		p.logger.Warn("failed to parse IS-IS PDU",
			zap.String("topic", rec.Topic),
			zap.String("collector", collector),
			zap.Error(err),
		)
		return nil
	}

	metrics.KafkaMessagesTotal.WithLabelValues("state", rec.Topic, pkt.PDUType.String()).Inc()

	// Hellos and SNPs carry no link-state.
	lsp, ok := pkt.PDU.(*isis.LSP)
	if !ok {
		return nil
	}

	metrics.LastMsgTimestamp.WithLabelValues("state", collector).SetToCurrentTime()

	u := NewLSPUpdate(collector, lsp)
	if !u.Purge() {
		p.countWatched(u)
	}
	return u
}

func (p *Pipeline) countWatched(u *LSPUpdate) {
	if p.watch == nil {
		return
	}
	level := strconv.Itoa(int(u.Level))
	for _, pfx := range u.Prefixes {
		if !pfx.Prefix.IsValid() || !p.watch.OverlapsPrefix(pfx.Prefix.Masked()) {
			continue
		}
		metrics.WatchedPrefixAdvertisementsTotal.WithLabelValues(u.Collector, level).Inc()
		p.logger.Info("watched prefix advertised",
			zap.String("collector", u.Collector),
			zap.Stringer("lsp_id", u.LSPID),
			zap.Stringer("prefix", pfx.Prefix),
			zap.Uint32("metric", pfx.Metric),
		)
	}
}

func (p *Pipeline) flush(ctx context.Context, batch []*LSPUpdate, records []*kgo.Record, flushed chan<- []*kgo.Record) error {
	if err := p.writer.ApplyBatch(ctx, batch); err != nil {
		return err
	}

	// Signal successful flush for offset commit.
	select {
	case flushed <- records:
	case <-ctx.Done():
	}

	return nil
}
