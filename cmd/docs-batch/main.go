package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/app"
	"github.com/joseph-ayodele/docs-tracker/internal/async"
	"github.com/joseph-ayodele/docs-tracker/internal/common"
	"github.com/joseph-ayodele/docs-tracker/internal/ingest"
	"github.com/joseph-ayodele/docs-tracker/internal/metrics"
	"github.com/joseph-ayodele/docs-tracker/internal/pipeline"
	"github.com/joseph-ayodele/docs-tracker/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		envFile     = flag.String("env", ".env", "optional .env file to load")
		inmem       = flag.Bool("inmem", false, "use in-memory SQLite database")
		sqlitePath  = flag.String("sqlite", "", "use a SQLite database file instead of DB_URL")
		dir         = flag.String("dir", "", "directory to process documents from (required)")
		watch       = flag.Bool("watch", false, "keep running and process new files as they appear")
		reprocess   = flag.Bool("reprocess", false, "parse files again even if their content was already parsed")
		workers     = flag.Int("workers", 0, "concurrent files (default from WORKERS)")
		patterns    = flag.String("patterns", "", "pattern catalog YAML (default: built-in)")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
		out         = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		noExport    = flag.Bool("no-export", false, "skip the XLSX export")
		typeStr     = flag.String("type", "", "export only this document type")
		fromStr     = flag.String("from", "", "from date YYYY-MM-DD")
		toStr       = flag.String("to", "", "to date YYYY-MM-DD")
		logFormat   = flag.String("log-format", "json", "log format: json | text")
	)
	flag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	// If output file not specified, use parent directory with default filename
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "documents.xlsx")
	}

	filter, err := exportFilter(*typeStr, *fromStr, *toStr)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	// Load configuration, flags override the environment
	cfg := common.LoadConfig()
	switch {
	case *inmem:
		cfg.Database.Driver, cfg.Database.DSN = repository.DriverSQLite, ":memory:"
	case *sqlitePath != "":
		cfg.Database.Driver, cfg.Database.DSN = repository.DriverSQLite, *sqlitePath
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if *metricsAddr != "" {
		cfg.Batch.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbResult, err := app.InitDatabase(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbResult.Cleanup()

	cat, err := app.LoadCatalog(*patterns)
	if err != nil {
		logger.Error("failed to load pattern catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("pattern catalog loaded", "version", cat.Version())

	m := metrics.New()
	if cfg.Batch.MetricsAddr != "" {
		srv := serveMetrics(cfg.Batch.MetricsAddr, m, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	parser := app.NewParser(cfg.Parser, cat, logger)
	svc := app.NewServices(dbResult.DB, parser, m, cfg.Batch, *reprocess, logger)

	var summary pipeline.BatchStats
	if *watch {
		summary, err = runWatch(ctx, svc.Processor, cfg, *dir, logger)
	} else {
		logger.Info("starting batch", "dir", *dir, "workers", cfg.Batch.Workers)
		_, summary, err = svc.Processor.ProcessDirectory(ctx, *dir, true)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("processing failed", "error", err)
		os.Exit(1)
	}

	if !*noExport {
		// the run may have been interrupted; still export what was stored
		ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		logger.Info("exporting to XLSX", "output", *out)
		xlsxBytes, err := svc.Export.ExportDocumentsXLSX(ectx, filter)
		if err != nil {
			logger.Error("failed to export documents", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
			logger.Error("failed to write output file", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("batch processing complete",
		"files", summary.Total,
		"parsed", summary.Parsed,
		"skipped", summary.Skipped,
		"failures", summary.Failed,
	)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files: %d\n", summary.Total)
	fmt.Printf("- Parsed: %d (purchase orders %d, invoices %d, receipts %d, unknown %d)\n",
		summary.Parsed,
		summary.ByType[constants.PurchaseOrder],
		summary.ByType[constants.Invoice],
		summary.ByType[constants.Receipt],
		summary.ByType[constants.Unknown],
	)
	fmt.Printf("- Already parsed: %d\n", summary.Skipped)
	fmt.Printf("- Failures: %d\n", summary.Failed)
	if !*noExport {
		fmt.Printf("- Output: %s\n", *out)
	}
}

// runWatch feeds new files under dir to a worker queue until ctx is cancelled.
func runWatch(ctx context.Context, proc *pipeline.Processor, cfg *common.Config, dir string, logger *slog.Logger) (pipeline.BatchStats, error) {
	stats := pipeline.BatchStats{ByType: map[constants.DocumentType]int{}}
	var mu sync.Mutex
	tally := func(_ async.Job, r pipeline.Result) {
		mu.Lock()
		defer mu.Unlock()
		stats.Total++
		switch {
		case r.Err != nil:
			stats.Failed++
		case r.Skipped:
			stats.Skipped++
		default:
			stats.Parsed++
			stats.ByType[r.DocumentType]++
		}
	}

	q := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(2*cfg.Parser.AcquireTimeout),
		async.WithResultHook(tally),
	)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    cfg.Batch.Debounce,
		Logger:      logger,
	})
	if err != nil {
		q.Shutdown(context.Background())
		return stats, err
	}

	logger.Info("watching for documents", "dir", dir)
loop:
	for {
		select {
		case path, ok := <-events:
			if !ok {
				break loop
			}
			if err := q.Enqueue(ctx, async.Job{Path: path, SubmittedAt: time.Now()}); err != nil {
				logger.Warn("dropping file", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch error", "error", err)
		case <-ctx.Done():
			break loop
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(sctx)

	mu.Lock()
	defer mu.Unlock()
	out := stats
	out.ByType = maps.Clone(stats.ByType)
	return out, ctx.Err()
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func exportFilter(typeStr, fromStr, toStr string) (repository.ListFilter, error) {
	var f repository.ListFilter
	if typeStr != "" {
		t, ok := constants.ParseDocumentType(typeStr)
		if !ok {
			return f, fmt.Errorf("invalid --type %q", typeStr)
		}
		f.Type = t
	}
	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return f, fmt.Errorf("invalid --from date format, use YYYY-MM-DD: %w", err)
		}
		f.From = &parsed
	}
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return f, fmt.Errorf("invalid --to date format, use YYYY-MM-DD: %w", err)
		}
		f.To = &parsed
	}
	return f, nil
}
