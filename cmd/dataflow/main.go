// Command dataflow loads generated sample records into PostgreSQL through the
// bulk writer and reports throughput. The mode (insert, simulate, update or
// stream) and all sizing come from the config file and DATAFLOW_* variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"dataflow/internal/config"
	"dataflow/internal/metrics"
	"dataflow/internal/metrics/datadog"
	"dataflow/internal/metrics/prompush"
	"dataflow/internal/storage/postgres"
	"dataflow/pkg/bulk"
)

func main() {
	var (
		cfgPath  string
		validate bool
		seed     uint64
	)
	flag.StringVar(&cfgPath, "config", "", "config file (yaml, json or toml); empty uses defaults and DATAFLOW_* env")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.Uint64Var(&seed, "seed", 1, "seed for generated sample data")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(*cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid")
	}
	if validate {
		fmt.Fprintln(os.Stderr, "configuration is valid")
		return
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if flush := setupMetrics(log, cfg.Metrics); flush != nil {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	n, err := run(ctx, log, cfg, seed)
	elapsed := time.Since(start)
	if err != nil {
		log.Error("run failed", "mode", cfg.Mode, "rows", n, "err", err)
		stop()
		os.Exit(1)
	}

	p := message.NewPrinter(language.English)
	rps := float64(0)
	if elapsed > 0 {
		rps = float64(n) / elapsed.Seconds()
	}
	p.Fprintf(os.Stdout, "%s: %d rows in %s (%.0f rows/sec)\n",
		cfg.Mode, n, elapsed.Truncate(time.Millisecond), rps)
}

// setupMetrics installs the configured backend and returns its flush func,
// or nil when metrics stay disabled.
func setupMetrics(log *slog.Logger, mc config.MetricsConfig) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch mc.Backend {
	case config.BackendPrometheus:
		b, err = prompush.NewBackend(mc.Job, mc.PushgatewayURL)
	case config.BackendDatadog:
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       mc.DatadogAddr,
			GlobalTags: []string{"job:" + mc.Job},
		})
	default:
		log.Debug("metrics: disabled", "backend", mc.Backend)
		return nil
	}
	if err != nil {
		log.Warn("metrics: backend init failed; using nop", "backend", mc.Backend, "err", err)
		return nil
	}

	log.Info("metrics: enabled", "backend", mc.Backend, "job", mc.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", "err", err)
		}
	}
}

// run opens the pool, optionally creates the sample table, binds a writer and
// executes the configured mode. It returns the rows written (or encoded, in
// simulate mode).
func run(ctx context.Context, log *slog.Logger, cfg *config.Config, seed uint64) (int64, error) {
	pool, closePool, err := postgres.NewPool(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: cfg.Pool.MaxConns})
	if err != nil {
		return 0, err
	}
	defer closePool()

	if cfg.CreateTable {
		if err := bulk.CreateTable[sample](ctx, pool, false); err != nil {
			return 0, err
		}
		log.Info("table ensured", "table", sample{}.TableName())
	}

	w, err := bulk.New[sample](ctx, pool, bulk.WithLogger(log), bulk.WithJob(cfg.Metrics.Job))
	if err != nil {
		return 0, err
	}

	records := newSamples(cfg.Rows, seed)
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = bulk.DefaultBatchSize
	}

	switch cfg.Mode {
	case config.ModeInsert:
		return eachBatch(ctx, records, batchSize, w.CreateBulk)
	case config.ModeSimulate:
		return eachBatch(ctx, records, batchSize, w.SimulateBulk)
	case config.ModeUpdate:
		if _, err := eachBatch(ctx, records, batchSize, w.CreateBulk); err != nil {
			return 0, fmt.Errorf("seed rows for update: %w", err)
		}
		for i := range records {
			records[i].Score = -records[i].Score
			records[i].Qty++
		}
		return eachBatch(ctx, records, batchSize, func(ctx context.Context, batch []sample) (int64, error) {
			return w.UpdateColumnBulkByName(ctx, batch, cfg.UpdateColumn)
		})
	case config.ModeStream:
		pctx, cancel := context.WithCancel(ctx)
		defer cancel()
		in := make(chan sample, batchSize)
		go produce(pctx, in, records)
		n, err := w.Stream(ctx, in, bulk.StreamConfig{BatchSize: batchSize, Workers: cfg.Workers})
		cancel()
		return n, err
	}
	return 0, fmt.Errorf("unknown mode %q", cfg.Mode)
}

// produce feeds records into in until they run out or ctx is done, then
// closes in.
func produce[T any](ctx context.Context, in chan<- T, records []T) {
	defer close(in)
	for _, r := range records {
		select {
		case in <- r:
		case <-ctx.Done():
			return
		}
	}
}

// eachBatch applies fn to consecutive batches and sums the counts.
func eachBatch(ctx context.Context, records []sample, size int, fn func(context.Context, []sample) (int64, error)) (int64, error) {
	var total int64
	for _, batch := range chunks(records, size) {
		n, err := fn(ctx, batch)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
