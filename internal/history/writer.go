package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zstd"
	"github.com/route-beacon/isis-ingester/internal/metrics"
	"go.uber.org/zap"
)

var zstdEncoder, _ = zstd.NewWriter(nil)

type Writer struct {
	pool          *pgxpool.Pool
	logger        *zap.Logger
	storeRawBytes bool
	compressRaw   bool
}

func NewWriter(pool *pgxpool.Pool, logger *zap.Logger, storeRawBytes, compressRaw bool) *Writer {
	return &Writer{
		pool:          pool,
		logger:        logger,
		storeRawBytes: storeRawBytes,
		compressRaw:   compressRaw,
	}
}

// HistoryRow represents a single row to insert into pdu_events.
type HistoryRow struct {
	EventID     []byte // 32-byte SHA256
	Collector   string
	PDUType     string
	Level       int
	SourceID    string
	LSPID       string // LSPs only
	SeqNum      uint32
	Lifetime    uint16
	TLVCodes    []int32
	UnknownTLVs map[string]string // code -> hex value
	Raw         []byte            // PDU bytes without LLC header
	Topic       string            // For dedup metric labeling
}

// FlushBatch inserts a batch of history rows into pdu_events.
// Returns the number of rows actually inserted (after dedup).
func (w *Writer) FlushBatch(ctx context.Context, rows []*HistoryRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	start := time.Now()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var totalInserted int64

	for _, row := range rows {
		var unknownJSON []byte
		if len(row.UnknownTLVs) > 0 {
			unknownJSON, err = json.Marshal(row.UnknownTLVs)
			if err != nil {
				return 0, fmt.Errorf("marshal unknown tlvs: %w", err)
			}
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO pdu_events (event_id, ingest_time, collector, pdu_type, level,
				source_id, lsp_id, seq_num, lifetime, tlv_codes, unknown_tlvs, pdu_raw)
			VALUES ($1, date_trunc('day', now()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (event_id, ingest_time) DO NOTHING`,
			row.EventID, row.Collector, row.PDUType, nilIfZero(row.Level),
			nilIfEmpty(row.SourceID), nilIfEmpty(row.LSPID),
			seqNumOrNil(row), lifetimeOrNil(row),
			row.TLVCodes, unknownJSON, w.rawBytes(row.Raw),
		)
		if err != nil {
			return 0, fmt.Errorf("insert pdu_event: %w", err)
		}

		affected := tag.RowsAffected()
		totalInserted += affected
		if affected == 0 {
			metrics.HistoryDedupConflictsTotal.WithLabelValues(row.Topic).Inc()
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	dur := time.Since(start).Seconds()
	metrics.DBWriteDuration.WithLabelValues("history", "insert").Observe(dur)
	metrics.DBRowsAffectedTotal.WithLabelValues("history", "pdu_events", "insert").Add(float64(totalInserted))
	metrics.BatchSize.WithLabelValues("history").Observe(float64(len(rows)))

	return totalInserted, nil
}

func (w *Writer) rawBytes(raw []byte) []byte {
	if !w.storeRawBytes || raw == nil {
		return nil
	}
	if w.compressRaw {
		return zstdEncoder.EncodeAll(raw, nil)
	}
	return raw
}

// Sequence number and lifetime only exist on LSPs.
func seqNumOrNil(row *HistoryRow) any {
	if row.LSPID == "" {
		return nil
	}
	return int64(row.SeqNum)
}

func lifetimeOrNil(row *HistoryRow) any {
	if row.LSPID == "" {
		return nil
	}
	return int32(row.Lifetime)
}

func nilIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
