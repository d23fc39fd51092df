package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/route-beacon/isis-ingester/internal/config"
	"github.com/route-beacon/isis-ingester/internal/db"
	"github.com/route-beacon/isis-ingester/internal/history"
	isishttp "github.com/route-beacon/isis-ingester/internal/http"
	"github.com/route-beacon/isis-ingester/internal/kafka"
	"github.com/route-beacon/isis-ingester/internal/lsdb"
	"github.com/route-beacon/isis-ingester/internal/maintenance"
	"github.com/route-beacon/isis-ingester/internal/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const maintenanceInterval = time.Hour

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe()
	case "migrate":
		runMigrate()
	case "maintenance":
		runMaintenance()
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: isis-ingester <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve         Start the ingestion service")
	fmt.Println("  migrate       Run database migrations")
	fmt.Println("  maintenance   Run partition maintenance and expire aged-out LSPs")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>   Path to configuration YAML file")
	fmt.Println("  --log-level <lvl> Override log level (debug, info, warn, error)")
}

func parseFlags(args []string) (configPath string, logLevel string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				logLevel = args[i+1]
				i++
			}
		}
	}
	return
}

func loadConfig(args []string) (*config.Config, *zap.Logger) {
	configPath, logLevelOverride := parseFlags(args)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if logLevelOverride != "" {
		cfg.Service.LogLevel = logLevelOverride
	}

	logger := initLogger(cfg.Service.LogLevel)
	return cfg, logger
}

func initLogger(level string) *zap.Logger {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zap.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// migrationsDir returns the path to the migrations directory relative to the binary.
func migrationsDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "migrations"
	}
	return filepath.Join(filepath.Dir(exe), "migrations")
}

type runner interface {
	Run(ctx context.Context, records <-chan []*kgo.Record, flushed chan<- []*kgo.Record)
}

// startPipeline runs a consumer and its pipeline in g. The pipeline closes
// flushed when it returns so the consumer's committer can drain and exit.
func startPipeline(ctx context.Context, g *errgroup.Group, c *kafka.Consumer, p runner, bufSize int, commitWg *sync.WaitGroup) {
	records := make(chan []*kgo.Record, bufSize)
	flushed := make(chan []*kgo.Record, bufSize)

	// Counted before the goroutine starts so an early commitWg.Wait cannot
	// miss this committer.
	commitWg.Add(1)
	g.Go(func() error {
		c.Run(ctx, records, flushed, commitWg)
		return nil
	})
	g.Go(func() error {
		p.Run(ctx, records, flushed)
		close(flushed)
		return nil
	})
}

func runServe() {
	cfg, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	metrics.Register()

	logger.Info("starting isis-ingester",
		zap.String("instance_id", cfg.Service.InstanceID),
		zap.String("http_listen", cfg.Service.HTTPListen),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Ensure partitions exist on startup.
	pm := maintenance.NewPartitionManager(pool, cfg.Retention.Days, cfg.Retention.Timezone, logger.Named("maintenance"))
	if err := pm.CreatePartitions(ctx); err != nil {
		logger.Fatal("failed to create partitions on startup", zap.Error(err))
	}

	tlsCfg, err := cfg.Kafka.BuildTLSConfig()
	if err != nil {
		logger.Fatal("failed to build TLS config", zap.Error(err))
	}
	saslMech := cfg.Kafka.BuildSASLMechanism()

	watch, err := cfg.Ingest.WatchSet()
	if err != nil {
		logger.Fatal("invalid watch prefixes", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	var commitWg sync.WaitGroup

	// --- State pipeline ---
	stateConsumer, err := kafka.NewConsumer("state",
		cfg.Kafka.Brokers, cfg.Kafka.State.GroupID, cfg.Kafka.State.Topics,
		cfg.Kafka.ClientID+"-state", cfg.Kafka.FetchMaxBytes, tlsCfg, saslMech, logger.Named("kafka.state"),
	)
	if err != nil {
		logger.Fatal("failed to create state consumer", zap.Error(err))
	}
	defer stateConsumer.Close()

	stateWriter := lsdb.NewWriter(pool, cfg.NodeNames(), logger.Named("lsdb.writer"))
	statePipeline := lsdb.NewPipeline(stateWriter, cfg.Ingest.BatchSize, cfg.Ingest.FlushIntervalMs,
		cfg.Ingest.MaxPayloadBytes, watch, logger.Named("lsdb.pipeline"))
	startPipeline(gctx, g, stateConsumer, statePipeline, cfg.Ingest.ChannelBufferSize, &commitWg)

	logger.Info("state pipeline started",
		zap.Strings("topics", cfg.Kafka.State.Topics),
		zap.String("group_id", cfg.Kafka.State.GroupID),
	)

	// --- History pipeline ---
	historyConsumer, err := kafka.NewConsumer("history",
		cfg.Kafka.Brokers, cfg.Kafka.History.GroupID, cfg.Kafka.History.Topics,
		cfg.Kafka.ClientID+"-history", cfg.Kafka.FetchMaxBytes, tlsCfg, saslMech, logger.Named("kafka.history"),
	)
	if err != nil {
		logger.Fatal("failed to create history consumer", zap.Error(err))
	}
	defer historyConsumer.Close()

	historyWriter := history.NewWriter(pool, logger.Named("history.writer"),
		cfg.Ingest.StoreRawBytes, cfg.Ingest.StoreRawBytesCompress)
	historyPipeline := history.NewPipeline(historyWriter,
		cfg.Ingest.BatchSize, cfg.Ingest.FlushIntervalMs, cfg.Ingest.MaxPayloadBytes,
		cfg.Ingest.VerifyRoundtrip, logger.Named("history.pipeline"))
	startPipeline(gctx, g, historyConsumer, historyPipeline, cfg.Ingest.ChannelBufferSize, &commitWg)

	logger.Info("history pipeline started",
		zap.Strings("topics", cfg.Kafka.History.Topics),
		zap.String("group_id", cfg.Kafka.History.GroupID),
	)

	// --- Periodic maintenance ---
	g.Go(func() error {
		ticker := time.NewTicker(maintenanceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := pm.Run(gctx); err != nil {
					logger.Error("periodic maintenance failed", zap.Error(err))
				}
			}
		}
	})

	// --- HTTP server ---
	httpServer := isishttp.NewServer(cfg.Service.HTTPListen, pool, map[string]isishttp.ConsumerStatus{
		"state":   stateConsumer,
		"history": historyConsumer,
	}, cfg.Ingest.MaxPayloadBytes, logger.Named("http"))
	if err := httpServer.Start(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	logger.Info("all pipelines and HTTP server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-gctx.Done():
		logger.Warn("pipeline group stopped unexpectedly", zap.Error(context.Cause(gctx)))
	}

	shutdownTimeout := time.Duration(cfg.Service.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting HTTP traffic first.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancel()

	// Wait for the final flush of every pipeline and the last offset commit.
	done := make(chan error, 1)
	go func() {
		err := g.Wait()
		commitWg.Wait()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("pipelines stopped with error", zap.Error(err))
		} else {
			logger.Info("all pipelines stopped gracefully")
		}
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout reached, some goroutines may not have finished")
	}

	logger.Info("isis-ingester stopped")
}

func runMigrate() {
	cfg, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	logger.Info("running migrations",
		zap.String("dsn", redactDSN(cfg.Postgres.DSN)),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrationsDir(), logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	logger.Info("migrations complete")
}

func runMaintenance() {
	cfg, logger := loadConfig(os.Args[2:])
	defer logger.Sync()

	metrics.Register()

	logger.Info("running partition maintenance",
		zap.Int("retention_days", cfg.Retention.Days),
		zap.String("timezone", cfg.Retention.Timezone),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	pm := maintenance.NewPartitionManager(pool, cfg.Retention.Days, cfg.Retention.Timezone, logger)
	if err := pm.Run(ctx); err != nil {
		logger.Fatal("maintenance failed", zap.Error(err))
	}

	logger.Info("partition maintenance complete")
}

var dsnPassword = regexp.MustCompile(`password\s*=\s*\S+`)

func redactDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		// keyword=value format
		return dsnPassword.ReplaceAllString(dsn, "password=***")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
