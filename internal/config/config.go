package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/route-beacon/isis-ingester/internal/isis"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"go.uber.org/multierr"
	"go4.org/netipx"
)

const envPrefix = "ISIS_INGESTER_"

type Config struct {
	Service   ServiceConfig       `koanf:"service"`
	Kafka     KafkaConfig         `koanf:"kafka"`
	Postgres  PostgresConfig      `koanf:"postgres"`
	Ingest    IngestConfig        `koanf:"ingest"`
	Retention RetentionConfig     `koanf:"retention"`
	Nodes     map[string]NodeMeta `koanf:"nodes"`
}

// NodeMeta is operator-supplied metadata for a system ID. It fills in the
// hostname when a router does not advertise one.
type NodeMeta struct {
	Name     string `koanf:"name"`
	Location string `koanf:"location"`
}

type ServiceConfig struct {
	InstanceID             string `koanf:"instance_id"`
	HTTPListen             string `koanf:"http_listen"`
	LogLevel               string `koanf:"log_level"`
	ShutdownTimeoutSeconds int    `koanf:"shutdown_timeout_seconds"`
}

type KafkaConfig struct {
	Brokers       []string       `koanf:"brokers"`
	ClientID      string         `koanf:"client_id"`
	TLS           TLSConfig      `koanf:"tls"`
	SASL          SASLConfig     `koanf:"sasl"`
	State         ConsumerConfig `koanf:"state"`
	History       ConsumerConfig `koanf:"history"`
	FetchMaxBytes int32          `koanf:"fetch_max_bytes"`
}

type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CAFile   string `koanf:"ca_file"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
}

type SASLConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Mechanism string `koanf:"mechanism"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
}

type ConsumerConfig struct {
	GroupID string   `koanf:"group_id"`
	Topics  []string `koanf:"topics"`
}

type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns"`
	MinConns int32  `koanf:"min_conns"`
}

type IngestConfig struct {
	BatchSize             int      `koanf:"batch_size"`
	FlushIntervalMs       int      `koanf:"flush_interval_ms"`
	ChannelBufferSize     int      `koanf:"channel_buffer_size"`
	MaxPayloadBytes       int      `koanf:"max_payload_bytes"`
	StoreRawBytes         bool     `koanf:"store_raw_bytes"`
	StoreRawBytesCompress bool     `koanf:"store_raw_bytes_compress"`
	VerifyRoundtrip       bool     `koanf:"verify_roundtrip"`
	WatchPrefixes         []string `koanf:"watch_prefixes"`
}

type RetentionConfig struct {
	Days     int    `koanf:"days"`
	Timezone string `koanf:"timezone"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// ISIS_INGESTER_KAFKA__BROKERS → kafka.brokers
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "__", ".")
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env config: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			InstanceID:             "isis-ingester-1",
			HTTPListen:             ":8080",
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 30,
		},
		Kafka: KafkaConfig{
			ClientID:      "isis-ingester",
			FetchMaxBytes: 52428800,
			State: ConsumerConfig{
				GroupID: "isis-ingester-state",
			},
			History: ConsumerConfig{
				GroupID: "isis-ingester-history",
			},
		},
		Postgres: PostgresConfig{
			MaxConns: 20,
			MinConns: 2,
		},
		Ingest: IngestConfig{
			BatchSize:             1000,
			FlushIntervalMs:       200,
			ChannelBufferSize:     16,
			MaxPayloadBytes:       65535 + 3,
			StoreRawBytes:         true,
			StoreRawBytesCompress: true,
		},
		Retention: RetentionConfig{
			Days:     30,
			Timezone: "UTC",
		},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Env values for slice fields arrive as one comma-separated string.
	cfg.Kafka.Brokers = splitSingle(cfg.Kafka.Brokers)
	cfg.Kafka.State.Topics = splitSingle(cfg.Kafka.State.Topics)
	cfg.Kafka.History.Topics = splitSingle(cfg.Kafka.History.Topics)
	cfg.Ingest.WatchPrefixes = splitSingle(cfg.Ingest.WatchPrefixes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitSingle(v []string) []string {
	if len(v) == 1 && strings.Contains(v[0], ",") {
		parts := strings.Split(v[0], ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return v
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs error
	fail := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("config: "+format, args...))
	}

	if len(c.Kafka.Brokers) == 0 {
		fail("kafka.brokers is required")
	}
	if c.Postgres.DSN == "" {
		fail("postgres.dsn is required")
	}
	if c.Kafka.State.GroupID == "" {
		fail("kafka.state.group_id is required")
	}
	if len(c.Kafka.State.Topics) == 0 {
		fail("kafka.state.topics is required")
	}
	if c.Kafka.History.GroupID == "" {
		fail("kafka.history.group_id is required")
	}
	if len(c.Kafka.History.Topics) == 0 {
		fail("kafka.history.topics is required")
	}
	if c.Kafka.SASL.Enabled && !strings.EqualFold(c.Kafka.SASL.Mechanism, "PLAIN") {
		fail("kafka.sasl.mechanism %q is not supported (only PLAIN)", c.Kafka.SASL.Mechanism)
	}
	if c.Ingest.FlushIntervalMs <= 0 {
		fail("ingest.flush_interval_ms must be > 0 (got %d)", c.Ingest.FlushIntervalMs)
	}
	if c.Ingest.BatchSize <= 0 {
		fail("ingest.batch_size must be > 0 (got %d)", c.Ingest.BatchSize)
	}
	if c.Ingest.ChannelBufferSize <= 0 {
		fail("ingest.channel_buffer_size must be > 0 (got %d)", c.Ingest.ChannelBufferSize)
	}
	if c.Retention.Days <= 0 {
		fail("retention.days must be > 0 (got %d)", c.Retention.Days)
	}
	if c.Ingest.MaxPayloadBytes <= 0 {
		fail("ingest.max_payload_bytes must be > 0 (got %d)", c.Ingest.MaxPayloadBytes)
	}
	if c.Kafka.FetchMaxBytes <= 0 {
		fail("kafka.fetch_max_bytes must be > 0 (got %d)", c.Kafka.FetchMaxBytes)
	}
	if c.Postgres.MaxConns <= 0 {
		fail("postgres.max_conns must be > 0 (got %d)", c.Postgres.MaxConns)
	}
	if c.Postgres.MinConns < 0 {
		fail("postgres.min_conns must be >= 0 (got %d)", c.Postgres.MinConns)
	}
	if c.Service.ShutdownTimeoutSeconds <= 0 {
		fail("service.shutdown_timeout_seconds must be > 0 (got %d)", c.Service.ShutdownTimeoutSeconds)
	}
	if _, err := time.LoadLocation(c.Retention.Timezone); err != nil {
		fail("retention.timezone is invalid: %w", err)
	}
	if c.Kafka.FetchMaxBytes > 0 && int64(c.Ingest.MaxPayloadBytes) > int64(c.Kafka.FetchMaxBytes) {
		fail("ingest.max_payload_bytes (%d) exceeds kafka.fetch_max_bytes (%d)",
			c.Ingest.MaxPayloadBytes, c.Kafka.FetchMaxBytes)
	}
	if _, err := c.Ingest.WatchSet(); err != nil {
		errs = multierr.Append(errs, err)
	}
	for id := range c.Nodes {
		if _, err := isis.ParseSystemID(id); err != nil {
			fail("nodes: %w", err)
		}
	}
	return errs
}

// WatchSet builds the set of watched prefixes. An empty list yields an empty
// set.
func (c *IngestConfig) WatchSet() (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, s := range c.WatchPrefixes {
		p, err := netip.ParsePrefix(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("config: ingest.watch_prefixes: %w", err)
		}
		b.AddPrefix(p.Masked())
	}
	return b.IPSet()
}

// NodeNames maps system IDs to configured node metadata. Entries with an
// unparsable key are skipped; Validate reports them.
func (c *Config) NodeNames() map[isis.SystemID]NodeMeta {
	out := make(map[isis.SystemID]NodeMeta, len(c.Nodes))
	for id, meta := range c.Nodes {
		sys, err := isis.ParseSystemID(id)
		if err != nil {
			continue
		}
		out[sys] = meta
	}
	return out
}

// BuildTLSConfig creates a *tls.Config from the Kafka TLS settings. Returns nil if TLS is disabled.
func (k *KafkaConfig) BuildTLSConfig() (*tls.Config, error) {
	if !k.TLS.Enabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{}
	if k.TLS.CAFile != "" {
		caPEM, err := os.ReadFile(k.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsCfg.RootCAs = pool
	}
	if k.TLS.CertFile != "" && k.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(k.TLS.CertFile, k.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// BuildSASLMechanism returns nil if SASL is disabled.
func (k *KafkaConfig) BuildSASLMechanism() sasl.Mechanism {
	if !k.SASL.Enabled {
		return nil
	}
	switch strings.ToUpper(k.SASL.Mechanism) {
	case "PLAIN":
		return plain.Auth{User: k.SASL.Username, Pass: k.SASL.Password}.AsMechanism()
	default:
		return nil
	}
}
