package lsdb

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/route-beacon/isis-ingester/internal/config"
	"github.com/route-beacon/isis-ingester/internal/isis"
	"github.com/route-beacon/isis-ingester/internal/metrics"
	"go.uber.org/zap"
)

var prefixColumns = []string{
	"collector", "level", "lsp_id", "mt_id", "prefix", "metric", "up_down", "external", "prefix_sid", "prefix_sid_is_label",
}

type Writer struct {
	pool   *pgxpool.Pool
	nodes  map[isis.SystemID]config.NodeMeta
	logger *zap.Logger
}

// NewWriter creates the state writer. nodes supplies display names and
// locations for isis_hostnames.
func NewWriter(pool *pgxpool.Pool, nodes map[isis.SystemID]config.NodeMeta, logger *zap.Logger) *Writer {
	return &Writer{pool: pool, nodes: nodes, logger: logger}
}

// ApplyBatch applies updates in arrival order within one transaction.
func (w *Writer) ApplyBatch(ctx context.Context, updates []*LSPUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	start := time.Now()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var upserted, stale, purged, prefixes int64

	for _, u := range updates {
		if u.Purge() {
			n, err := w.purge(ctx, tx, u)
			if err != nil {
				return fmt.Errorf("purge lsp %s: %w", u.LSPID, err)
			}
			if n > 0 {
				purged += n
				metrics.LSPsPurgedTotal.WithLabelValues(strconv.Itoa(int(u.Level))).Add(float64(n))
			}
			continue
		}

		applied, err := w.upsertLSP(ctx, tx, u)
		if err != nil {
			return fmt.Errorf("upsert lsp %s: %w", u.LSPID, err)
		}
		if !applied {
			// An equal or newer instance is already stored.
			stale++
			continue
		}
		upserted++

		n, err := w.replacePrefixes(ctx, tx, u)
		if err != nil {
			return fmt.Errorf("replace prefixes for lsp %s: %w", u.LSPID, err)
		}
		prefixes += n

		if err := w.upsertHostname(ctx, tx, u); err != nil {
			return fmt.Errorf("upsert hostname for %s: %w", u.LSPID.SystemID(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	dur := time.Since(start).Seconds()
	metrics.DBWriteDuration.WithLabelValues("state", "batch").Observe(dur)
	metrics.DBRowsAffectedTotal.WithLabelValues("state", "lsp_state", "upsert").Add(float64(upserted))
	metrics.DBRowsAffectedTotal.WithLabelValues("state", "lsp_state", "delete").Add(float64(purged))
	metrics.DBRowsAffectedTotal.WithLabelValues("state", "lsp_prefixes", "copy").Add(float64(prefixes))
	metrics.BatchSize.WithLabelValues("state").Observe(float64(len(updates)))

	w.logger.Debug("state batch applied",
		zap.Int("lsps", len(updates)),
		zap.Int64("upserted", upserted),
		zap.Int64("stale", stale),
		zap.Int64("purged", purged),
	)

	return nil
}

// upsertLSP stores the LSP header unless the stored instance has a higher
// sequence number. It reports whether the row was written.
func (w *Writer) upsertLSP(ctx context.Context, tx pgx.Tx, u *LSPUpdate) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO lsp_state (collector, level, lsp_id, system_id, seq_num, lifetime,
			checksum, overload, attached, is_type, first_seen, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (collector, level, lsp_id) DO UPDATE SET
			seq_num    = EXCLUDED.seq_num,
			lifetime   = EXCLUDED.lifetime,
			checksum   = EXCLUDED.checksum,
			overload   = EXCLUDED.overload,
			attached   = EXCLUDED.attached,
			is_type    = EXCLUDED.is_type,
			updated_at = now()
		WHERE EXCLUDED.seq_num >= lsp_state.seq_num`,
		u.Collector, int16(u.Level), u.LSPID.String(), u.LSPID.SystemID().String(),
		int64(u.SeqNum), int32(u.Lifetime), int32(u.Checksum),
		u.Flags.Overload, u.Flags.Attached(), int16(u.Flags.ISType),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (w *Writer) replacePrefixes(ctx context.Context, tx pgx.Tx, u *LSPUpdate) (int64, error) {
	_, err := tx.Exec(ctx,
		`DELETE FROM lsp_prefixes WHERE collector = $1 AND level = $2 AND lsp_id = $3`,
		u.Collector, int16(u.Level), u.LSPID.String(),
	)
	if err != nil {
		return 0, err
	}
	rows := prefixRows(u)
	if len(rows) == 0 {
		return 0, nil
	}
	return tx.CopyFrom(ctx, pgx.Identifier{"lsp_prefixes"}, prefixColumns, pgx.CopyFromRows(rows))
}

// prefixRows flattens u.Prefixes into lsp_prefixes rows. Entries with an
// invalid prefix are skipped; duplicates keep the first occurrence.
func prefixRows(u *LSPUpdate) [][]any {
	type key struct {
		mtid uint16
		p    netip.Prefix
	}
	seen := make(map[key]bool, len(u.Prefixes))
	rows := make([][]any, 0, len(u.Prefixes))
	for _, p := range u.Prefixes {
		if !p.Prefix.IsValid() {
			continue
		}
		k := key{p.MTID, p.Prefix}
		if seen[k] {
			continue
		}
		seen[k] = true

		var sid, sidIsLabel any
		if p.SID != nil {
			sid = int64(p.SID.Value)
			sidIsLabel = p.SID.IsLabel()
		}
		rows = append(rows, []any{
			u.Collector, int16(u.Level), u.LSPID.String(), int32(p.MTID), p.Prefix,
			int64(p.Metric), p.Down, p.External, sid, sidIsLabel,
		})
	}
	return rows
}

func (w *Writer) upsertHostname(ctx context.Context, tx pgx.Tx, u *LSPUpdate) error {
	// Only the zeroth fragment of the router's own LSP names the node.
	if u.LSPID.Pseudonode() != 0 || u.LSPID.Fragment() != 0 {
		return nil
	}
	sys := u.LSPID.SystemID()
	meta := w.nodes[sys]
	if u.Hostname == "" && meta.Name == "" && meta.Location == "" {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO isis_hostnames (collector, system_id, hostname, display_name, location, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (collector, system_id) DO UPDATE SET
			hostname     = COALESCE(EXCLUDED.hostname, isis_hostnames.hostname),
			display_name = COALESCE(EXCLUDED.display_name, isis_hostnames.display_name),
			location     = COALESCE(EXCLUDED.location, isis_hostnames.location),
			updated_at   = now()`,
		u.Collector, sys.String(), nullableString(u.Hostname),
		nullableString(meta.Name), nullableString(meta.Location),
	)
	return err
}

// purge removes an LSP and its prefixes from the collector's view. A purge
// with a lower sequence number than the stored instance is ignored.
func (w *Writer) purge(ctx context.Context, tx pgx.Tx, u *LSPUpdate) (int64, error) {
	tag, err := tx.Exec(ctx,
		`DELETE FROM lsp_state WHERE collector = $1 AND level = $2 AND lsp_id = $3 AND seq_num <= $4`,
		u.Collector, int16(u.Level), u.LSPID.String(), int64(u.SeqNum),
	)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, nil
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM lsp_prefixes WHERE collector = $1 AND level = $2 AND lsp_id = $3`,
		u.Collector, int16(u.Level), u.LSPID.String(),
	)
	if err != nil {
		return 0, err
	}
	w.logger.Info("lsp purged",
		zap.Int("level", int(u.Level)),
		zap.Stringer("lsp_id", u.LSPID),
		zap.String("collector", u.Collector),
	)
	return tag.RowsAffected(), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
