package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/route-beacon/isis-ingester/internal/isis"
	"go.uber.org/multierr"
)

func validConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			InstanceID:             "test",
			HTTPListen:             ":8080",
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 30,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			FetchMaxBytes: 52428800,
			State:         ConsumerConfig{GroupID: "g1", Topics: []string{"t1"}},
			History:       ConsumerConfig{GroupID: "g2", Topics: []string{"t2"}},
		},
		Postgres: PostgresConfig{
			DSN:      "postgres://localhost/test",
			MaxConns: 10,
			MinConns: 2,
		},
		Ingest: IngestConfig{
			BatchSize:         1000,
			FlushIntervalMs:   200,
			ChannelBufferSize: 16,
			MaxPayloadBytes:   1024,
		},
		Retention: RetentionConfig{
			Days:     30,
			Timezone: "UTC",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_SingleFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"no dsn", func(c *Config) { c.Postgres.DSN = "" }},
		{"no state group", func(c *Config) { c.Kafka.State.GroupID = "" }},
		{"no history group", func(c *Config) { c.Kafka.History.GroupID = "" }},
		{"no state topics", func(c *Config) { c.Kafka.State.Topics = nil }},
		{"no history topics", func(c *Config) { c.Kafka.History.Topics = nil }},
		{"flush interval zero", func(c *Config) { c.Ingest.FlushIntervalMs = 0 }},
		{"flush interval negative", func(c *Config) { c.Ingest.FlushIntervalMs = -1 }},
		{"batch size zero", func(c *Config) { c.Ingest.BatchSize = 0 }},
		{"channel buffer zero", func(c *Config) { c.Ingest.ChannelBufferSize = 0 }},
		{"retention days zero", func(c *Config) { c.Retention.Days = 0 }},
		{"shutdown timeout zero", func(c *Config) { c.Service.ShutdownTimeoutSeconds = 0 }},
		{"invalid timezone", func(c *Config) { c.Retention.Timezone = "Not/A/Real/Zone" }},
		{"payload above fetch size", func(c *Config) { c.Ingest.MaxPayloadBytes = int(c.Kafka.FetchMaxBytes) + 1 }},
		{"sasl mechanism", func(c *Config) { c.Kafka.SASL = SASLConfig{Enabled: true, Mechanism: "SCRAM-SHA-512"} }},
		{"watch prefix", func(c *Config) { c.Ingest.WatchPrefixes = []string{"10.0.0.0/33"} }},
		{"node system id", func(c *Config) { c.Nodes = map[string]NodeMeta{"r1": {Name: "r1"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if n := len(multierr.Errors(err)); n != 1 {
				t.Errorf("expected 1 error, got %d: %v", n, err)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Kafka.Brokers = nil
	cfg.Postgres.DSN = ""
	cfg.Retention.Days = 0

	errs := multierr.Errors(cfg.Validate())
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Error(), "kafka.brokers") {
		t.Errorf("unexpected first error: %v", errs[0])
	}
}

func TestValidate_ValidTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Retention.Timezone = "America/New_York"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestWatchSet(t *testing.T) {
	ing := IngestConfig{WatchPrefixes: []string{"10.0.0.0/8", " 2001:db8::/32", "192.168.1.7/24"}}
	set, err := ing.WatchSet()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !set.Contains(netip.MustParseAddr("10.20.30.40")) {
		t.Error("expected 10.20.30.40 in watch set")
	}
	if !set.Contains(netip.MustParseAddr("192.168.1.200")) {
		t.Error("expected host bits to be masked off 192.168.1.7/24")
	}
	if !set.OverlapsPrefix(netip.MustParsePrefix("2001:db8:1::/48")) {
		t.Error("expected 2001:db8:1::/48 to overlap")
	}
	if set.Contains(netip.MustParseAddr("172.16.0.1")) {
		t.Error("did not expect 172.16.0.1 in watch set")
	}
}

func TestNodeNames(t *testing.T) {
	cfg := validConfig()
	cfg.Nodes = map[string]NodeMeta{
		"010203040506":   {Name: "core-1", Location: "fra1"},
		"0102-0304-0507": {Name: "core-2"},
		"bogus":          {Name: "ignored"},
	}
	names := cfg.NodeNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(names))
	}
	if got := names[isis.SystemID{1, 2, 3, 4, 5, 6}]; got.Name != "core-1" || got.Location != "fra1" {
		t.Errorf("unexpected node meta %+v", got)
	}
}

func writeMinimalYAML(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	data := `
kafka:
  brokers:
    - "localhost:9092"
  state:
    topics:
      - "isis.pdus"
  history:
    topics:
      - "isis.pdus"
postgres:
  dsn: "postgres://localhost/test"
ingest:
  watch_prefixes:
    - "10.0.0.0/8"
nodes:
  "010203040506":
    name: "core-1"
    location: "fra1"
`
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeMinimalYAML(t)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Kafka.State.GroupID != "isis-ingester-state" {
		t.Errorf("expected default state group, got %q", cfg.Kafka.State.GroupID)
	}
	if !cfg.Ingest.StoreRawBytes || !cfg.Ingest.StoreRawBytesCompress {
		t.Error("expected raw byte storage with compression by default")
	}
	if cfg.Ingest.VerifyRoundtrip {
		t.Error("expected verify_roundtrip off by default")
	}
	if len(cfg.Ingest.WatchPrefixes) != 1 {
		t.Errorf("expected 1 watch prefix, got %v", cfg.Ingest.WatchPrefixes)
	}
	if cfg.Nodes["010203040506"].Name != "core-1" {
		t.Errorf("expected node meta from file, got %+v", cfg.Nodes)
	}
}

func TestLoad_EnvOverrideDSN(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("ISIS_INGESTER_POSTGRES__DSN", "postgres://envhost/envdb")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://envhost/envdb" {
		t.Errorf("expected DSN from env, got %q", cfg.Postgres.DSN)
	}
}

func TestLoad_EnvOverrideLogLevel(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("ISIS_INGESTER_SERVICE__LOG_LEVEL", "debug")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Service.LogLevel != "debug" {
		t.Errorf("expected log_level 'debug' from env, got %q", cfg.Service.LogLevel)
	}
}

func TestLoad_EnvCommaSeparatedBrokers(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("ISIS_INGESTER_KAFKA__BROKERS", "k1:9092, k2:9092")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("expected two brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_EnvEmptyGroupIDFailsValidation(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("ISIS_INGESTER_KAFKA__STATE__GROUP_ID", "")

	_, err := Load(p)
	if err == nil {
		t.Fatal("expected validation error for empty state group_id via env")
	}
}

func TestBuildSASLMechanism(t *testing.T) {
	k := KafkaConfig{SASL: SASLConfig{Enabled: true, Mechanism: "plain", Username: "u", Password: "p"}}
	m := k.BuildSASLMechanism()
	if m == nil || m.Name() != "PLAIN" {
		t.Fatalf("expected PLAIN mechanism, got %v", m)
	}
	k.SASL.Enabled = false
	if k.BuildSASLMechanism() != nil {
		t.Error("expected nil mechanism when SASL is disabled")
	}
}
