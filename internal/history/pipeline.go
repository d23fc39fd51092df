package history

import (
	"context"
	"strconv"
	"time"

	"github.com/route-beacon/isis-ingester/internal/capture"
	"github.com/route-beacon/isis-ingester/internal/isis"
	"github.com/route-beacon/isis-ingester/internal/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// finalFlushTimeout bounds the flush done after the run context is cancelled.
const finalFlushTimeout = 10 * time.Second

// BatchWriter persists history rows. *Writer is the production implementation.
type BatchWriter interface {
	FlushBatch(ctx context.Context, rows []*HistoryRow) (int64, error)
}

type Pipeline struct {
	writer          BatchWriter
	batchSize       int
	flushInterval   time.Duration
	maxPayloadBytes int
	verifyRoundtrip bool
	logger          *zap.Logger
}

func NewPipeline(writer BatchWriter, batchSize, flushIntervalMs, maxPayloadBytes int, verifyRoundtrip bool, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		writer:          writer,
		batchSize:       batchSize,
		flushInterval:   time.Duration(flushIntervalMs) * time.Millisecond,
		maxPayloadBytes: maxPayloadBytes,
		verifyRoundtrip: verifyRoundtrip,
		logger:          logger,
	}
}

// Run processes records from the channel until context is cancelled or the
// channel is closed. Records are handed back on flushed once their rows are
// stored.
func (p *Pipeline) Run(ctx context.Context, records <-chan []*kgo.Record, flushed chan<- []*kgo.Record) {
	var batch []*HistoryRow
	var batchRecords []*kgo.Record
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	finalFlush := func() {
		if len(batchRecords) == 0 {
			return
		}
		fctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
		defer cancel()
		p.flush(fctx, batch, batchRecords, flushed)
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
				if row := p.processRecord(rec); row != nil {
					batch = append(batch, row)
				}
				// Unparseable records are still committed so they do not
				// stall the partition.
				batchRecords = append(batchRecords, rec)
			}

			if len(batchRecords) >= p.batchSize {
				if p.flush(ctx, batch, batchRecords, flushed) {
					batch = nil
					batchRecords = nil
				}
			}

			// Cap memory: if repeated flush failures cause the batch to
			// grow beyond 10x the configured size, drop it.
			if len(batchRecords) >= p.batchSize*10 {
				p.logger.Error("dropping oversized batch after repeated flush failures",
					zap.Int("dropped_records", len(batchRecords)),
					zap.Int("dropped_rows", len(batch)),
				)
				batch = nil
				batchRecords = nil
			}

		case <-ticker.C:
			if len(batchRecords) > 0 {
				if p.flush(ctx, batch, batchRecords, flushed) {
					batch = nil
					batchRecords = nil
				}
			}
		}
	}
}

func (p *Pipeline) processRecord(rec *kgo.Record) *HistoryRow {
	collector := capture.CollectorFromKey(rec.Key)

	// Step 1: strip link-layer framing.
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

	// Step 2: event_id is the SHA256 of the PDU, not the framed record.
	eventID := ComputeEventID(frame.PDU)

	// Step 3: decode.
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

	if p.verifyRoundtrip {
		if err := capture.VerifyRoundTrip(pkt, frame.PDU); err != nil {
			metrics.ParseErrorsTotal.WithLabelValues("reencode", "mismatch").Inc()
			p.logger.Warn("re-encoded PDU differs from input",
				zap.String("collector", collector),
				zap.Stringer("pdu_type", pkt.PDUType),
				zap.Error(err),
			)
		}
	}

	s := capture.Summarize(pkt)
	metrics.KafkaMessagesTotal.WithLabelValues("history", rec.Topic, s.PDUType).Inc()
	metrics.LastMsgTimestamp.WithLabelValues("history", collector).SetToCurrentTime()
	for _, t := range pkt.PDU.TLVList() {
		if u, ok := t.(*isis.UnknownTLV); ok {
			metrics.UnknownTLVsTotal.WithLabelValues(strconv.Itoa(int(u.Code))).Inc()
		}
	}

	return &HistoryRow{
		EventID:     eventID,
		Collector:   collector,
		PDUType:     s.PDUType,
		Level:       s.Level,
		SourceID:    s.SourceID,
		LSPID:       s.LSPID,
		SeqNum:      s.SeqNum,
		Lifetime:    s.Lifetime,
		TLVCodes:    s.TLVCodes,
		UnknownTLVs: s.UnknownTLVs,
		Raw:         frame.PDU,
		Topic:       rec.Topic,
	}
}

func (p *Pipeline) flush(ctx context.Context, batch []*HistoryRow, records []*kgo.Record, flushed chan<- []*kgo.Record) bool {
	inserted, err := p.writer.FlushBatch(ctx, batch)
	if err != nil {
		p.logger.Error("history batch flush failed", zap.Error(err))
		return false
	}

	p.logger.Debug("history batch flushed",
		zap.Int("batch_size", len(batch)),
		zap.Int64("inserted", inserted),
		zap.Int64("deduped", int64(len(batch))-inserted),
	)

	// Signal successful flush for offset commit.
	select {
	case flushed <- records:
	case <-ctx.Done():
	}

	return true
}
