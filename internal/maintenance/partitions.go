package maintenance

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/route-beacon/isis-ingester/internal/metrics"
	"go.uber.org/zap"
)

var validPartitionName = regexp.MustCompile(`^pdu_events_\d{8}$`)

type PartitionManager struct {
	pool          *pgxpool.Pool
	retentionDays int
	timezone      string
	logger        *zap.Logger
}

func NewPartitionManager(pool *pgxpool.Pool, retentionDays int, timezone string, logger *zap.Logger) *PartitionManager {
	return &PartitionManager{
		pool:          pool,
		retentionDays: retentionDays,
		timezone:      timezone,
		logger:        logger,
	}
}

func (pm *PartitionManager) Run(ctx context.Context) error {
	if err := pm.CreatePartitions(ctx); err != nil {
		return fmt.Errorf("creating partitions: %w", err)
	}
	if err := pm.DropOldPartitions(ctx); err != nil {
		return fmt.Errorf("dropping old partitions: %w", err)
	}
	if err := pm.ExpireLSPs(ctx); err != nil {
		return fmt.Errorf("expiring lsps: %w", err)
	}
	return nil
}

// ExpireLSPs removes LSPs whose remaining lifetime ran out without a purge
// being seen, together with their prefixes.
func (pm *PartitionManager) ExpireLSPs(ctx context.Context) error {
	tx, err := pm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		DELETE FROM lsp_state
		WHERE updated_at + make_interval(secs => lifetime) < now()
		RETURNING collector, level, lsp_id`)
	if err != nil {
		return fmt.Errorf("deleting expired lsps: %w", err)
	}
	type expired struct {
		collector string
		level     int16
		lspID     string
	}
	var gone []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.collector, &e.level, &e.lspID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning expired lsp: %w", err)
		}
		gone = append(gone, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating expired lsps: %w", err)
	}

	for _, e := range gone {
		if _, err := tx.Exec(ctx,
			`DELETE FROM lsp_prefixes WHERE collector = $1 AND level = $2 AND lsp_id = $3`,
			e.collector, e.level, e.lspID,
		); err != nil {
			return fmt.Errorf("deleting prefixes of %s: %w", e.lspID, err)
		}
		metrics.LSPsPurgedTotal.WithLabelValues(strconv.Itoa(int(e.level))).Inc()
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	if len(gone) > 0 {
		pm.logger.Info("expired lsps removed", zap.Int("count", len(gone)))
	}
	return nil
}

// CreatePartitions creates daily partitions for today and tomorrow using the configured timezone.
func (pm *PartitionManager) CreatePartitions(ctx context.Context) error {
	loc, err := time.LoadLocation(pm.timezone)
	if err != nil {
		return fmt.Errorf("loading timezone %s: %w", pm.timezone, err)
	}

	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)
	dayAfter := today.AddDate(0, 0, 2)

	if err := pm.createPartition(ctx, today, tomorrow); err != nil {
		return err
	}
	if err := pm.createPartition(ctx, tomorrow, dayAfter); err != nil {
		return err
	}
	return nil
}

func (pm *PartitionManager) createPartition(ctx context.Context, from, to time.Time) error {
	name := PartitionName(from)
	safeName := pgx.Identifier{name}.Sanitize()
	fromStr := from.UTC().Format("2006-01-02 15:04:05+00")
	toStr := to.UTC().Format("2006-01-02 15:04:05+00")

	createSQL := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s PARTITION OF pdu_events FOR VALUES FROM ('%s') TO ('%s')`,
		safeName, fromStr, toStr,
	)

	if _, err := pm.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("creating partition %s: %w", name, err)
	}
	pm.logger.Info("partition ensured", zap.String("partition", name))

	// Create per-partition indexes using sanitized names.
	safeIdxSource := pgx.Identifier{fmt.Sprintf("idx_%s_source", name)}.Sanitize()
	safeIdxLSP := pgx.Identifier{fmt.Sprintf("idx_%s_lsp_history", name)}.Sanitize()

	sourceIdx := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s (source_id, pdu_type, ingest_time DESC)`,
		safeIdxSource, safeName,
	)
	lspIdx := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s (lsp_id, seq_num DESC) WHERE lsp_id IS NOT NULL`,
		safeIdxLSP, safeName,
	)

	if _, err := pm.pool.Exec(ctx, sourceIdx); err != nil {
		return fmt.Errorf("creating source index on %s: %w", name, err)
	}
	if _, err := pm.pool.Exec(ctx, lspIdx); err != nil {
		return fmt.Errorf("creating lsp_history index on %s: %w", name, err)
	}

	return nil
}

// DropOldPartitions drops partitions older than the configured retention period.
func (pm *PartitionManager) DropOldPartitions(ctx context.Context) error {
	loc, err := time.LoadLocation(pm.timezone)
	if err != nil {
		return fmt.Errorf("loading timezone %s: %w", pm.timezone, err)
	}

	cutoffDate := RetentionCutoff(time.Now(), pm.retentionDays, loc)

	rows, err := pm.pool.Query(ctx,
		`SELECT inhrelid::regclass::text FROM pg_inherits WHERE inhparent = 'pdu_events'::regclass`)
	if err != nil {
		return fmt.Errorf("listing partitions: %w", err)
	}
	defer rows.Close()

	var partitions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning partition name: %w", err)
		}
		partitions = append(partitions, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating partitions: %w", err)
	}

	for _, name := range partitions {
		partDate, ok := partitionDate(name, loc)
		if !ok {
			pm.logger.Warn("skipping partition with unexpected name", zap.String("partition", name))
			continue
		}

		if partDate.Before(cutoffDate) {
			safeName := pgx.Identifier{name}.Sanitize()
			dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", safeName)
			if _, err := pm.pool.Exec(ctx, dropSQL); err != nil {
				return fmt.Errorf("dropping partition %s: %w", name, err)
			}
			pm.logger.Info("dropped old partition", zap.String("partition", name), zap.Time("cutoff", cutoffDate))
		}
	}

	return nil
}

// PartitionName is the pdu_events partition holding the day starting at day.
func PartitionName(day time.Time) string {
	return "pdu_events_" + day.Format("20060102")
}

// RetentionCutoff is local midnight retentionDays before now. Partitions
// starting before it are dropped.
func RetentionCutoff(now time.Time, retentionDays int, loc *time.Location) time.Time {
	c := now.In(loc).AddDate(0, 0, -retentionDays)
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, loc)
}

func partitionDate(name string, loc *time.Location) (time.Time, bool) {
	if !validPartitionName.MatchString(name) {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation("20060102", name[len(name)-8:], loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
