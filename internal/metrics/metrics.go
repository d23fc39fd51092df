package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	KafkaMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isisingester_kafka_messages_total",
			Help: "Total messages consumed from Kafka.",
		},
		[]string{"pipeline", "topic", "pdu_type"},
	)

	DBWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isisingester_db_write_duration_seconds",
			Help:    "DB write latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"pipeline", "op"},
	)

	DBRowsAffectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isisingester_db_rows_affected_total",
			Help: "DB rows written or deleted.",
		},
		[]string{"pipeline", "table", "op"},
	)

	HistoryDedupConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isisingester_history_dedup_conflicts_total",
			Help: "History dedup hits (ON CONFLICT DO NOTHING skips).",
		},
		[]string{"topic"},
	)

	ParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isisingester_parse_errors_total",
			Help: "Parse failures by stage.",
		},
		[]string{"stage", "reason"},
	)

	UnknownTLVsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isisingester_unknown_tlvs_total",
			Help: "TLVs carried through undecoded, by code.",
		},
		[]string{"code"},
	)

	LastMsgTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "isisingester_last_msg_timestamp_seconds",
			Help: "Unix timestamp of last processed message.",
		},
		[]string{"pipeline", "collector"},
	)

	BatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isisingester_batch_size",
			Help:    "Batch sizes flushed to DB.",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2000, 5000},
		},
		[]string{"pipeline"},
	)

	LSPsPurgedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isisingester_lsps_purged_total",
			Help: "LSPs removed from the state view.",
		},
		[]string{"level"},
	)

	WatchedPrefixAdvertisementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isisingester_watched_prefix_advertisements_total",
			Help: "LSP prefix advertisements overlapping a watched prefix.",
		},
		[]string{"collector", "level"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			KafkaMessagesTotal,
			DBWriteDuration,
			DBRowsAffectedTotal,
			HistoryDedupConflictsTotal,
			ParseErrorsTotal,
			UnknownTLVsTotal,
			LastMsgTimestamp,
			BatchSize,
			LSPsPurgedTotal,
			WatchedPrefixAdvertisementsTotal,
		)
	})
}
