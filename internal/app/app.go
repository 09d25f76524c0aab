// Package app wires configuration into the database, parser and processing services
// shared by the command-line tools.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
	"github.com/joseph-ayodele/docs-tracker/internal/common"
	"github.com/joseph-ayodele/docs-tracker/internal/docparse"
	"github.com/joseph-ayodele/docs-tracker/internal/export"
	"github.com/joseph-ayodele/docs-tracker/internal/ingest"
	"github.com/joseph-ayodele/docs-tracker/internal/metrics"
	"github.com/joseph-ayodele/docs-tracker/internal/pdftext"
	"github.com/joseph-ayodele/docs-tracker/internal/pipeline"
	"github.com/joseph-ayodele/docs-tracker/internal/repository"
)

// DBResult is an opened, migrated database and its cleanup.
type DBResult struct {
	DB      *repository.DB
	Cleanup func()
}

// InitDatabase opens the configured database and creates the schema.
func InitDatabase(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DBResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := repository.Open(ctx, repository.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
		DialTimeout:     cfg.DialTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &DBResult{DB: db, Cleanup: db.Close}, nil
}

// LoadCatalog reads a pattern catalog from path, or the built-in one when path is empty.
// The built-in catalog is covered by tests, so failing to compile it panics.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.MustDefault(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return catalog.Load(data)
}

// NewParser builds a guarded parser reading PDFs with the configured text strategy.
func NewParser(cfg common.ParserConfig, c *catalog.Catalog, logger *slog.Logger) *docparse.Parser {
	ext := pdftext.NewExtractor(pdftext.Config{
		Strategy:  cfg.TextStrategy,
		Pdftotext: cfg.PdftotextBin,
		MaxPages:  cfg.MaxPages,
	}, logger)
	guard := pdftext.NewGuard(pdftext.GuardConfig{
		MaxFileSize:    cfg.MaxFileSize,
		MaxPages:       cfg.MaxPages,
		AllowEncrypted: cfg.AllowEncrypted,
	}, logger)
	return docparse.NewParser(pdftext.NewTextAdapter(ext, logger), c, logger,
		docparse.WithGuard(guard),
		docparse.WithAcquireTimeout(cfg.AcquireTimeout),
	)
}

// Services bundles the repositories and services over one database.
type Services struct {
	Files     repository.DocumentFileRepository
	Runs      repository.ParseRunRepository
	Documents repository.DocumentRepository
	Vendors   repository.VendorDirectory
	Ingestor  *ingest.FSIngestor
	Processor *pipeline.Processor
	Export    *export.Service
}

func NewServices(db *repository.DB, parser pipeline.DocumentParser, m *metrics.Metrics, batch common.BatchConfig, reprocess bool, logger *slog.Logger) *Services {
	s := &Services{
		Files:     repository.NewDocumentFileRepository(db, logger),
		Runs:      repository.NewParseRunRepository(db, logger),
		Documents: repository.NewDocumentRepository(db, logger),
		Vendors:   repository.NewVendorDirectory(db, logger),
	}
	s.Ingestor = ingest.NewFSIngestor(s.Files, logger)
	s.Processor = pipeline.NewProcessor(logger, s.Ingestor, parser, s.Runs, s.Documents, s.Vendors,
		pipeline.WithWorkers(batch.Workers),
		pipeline.WithMetrics(m),
		pipeline.WithReprocess(reprocess),
	)
	s.Export = export.NewService(s.Documents, s.Files, logger)
	return s
}
