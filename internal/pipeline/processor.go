// Package pipeline registers source files, parses them and stores the results.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/common"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
	"github.com/joseph-ayodele/docs-tracker/internal/ingest"
	"github.com/joseph-ayodele/docs-tracker/internal/metrics"
	"github.com/joseph-ayodele/docs-tracker/internal/repository"
)

// DocumentParser turns a file into a structured record.
type DocumentParser interface {
	Parse(ctx context.Context, path string) (*entity.Record, error)
}

// Result is the outcome of processing one file.
type Result struct {
	Path         string
	FileID       uuid.UUID
	RunID        uuid.UUID
	DocumentID   uuid.UUID
	DocumentType constants.DocumentType
	Confidence   float64
	Skipped      bool // content already parsed successfully
	Err          error
}

// BatchStats aggregates a ProcessBatch call.
type BatchStats struct {
	Total     int
	Parsed    int
	Skipped   int
	Failed    int
	ByType    map[constants.DocumentType]int
	Duration  time.Duration
	FirstFail error
}

// Processor coordinates intake, parsing and storage of documents.
type Processor struct {
	Logger    *slog.Logger
	Ingestor  ingest.Ingestor
	Parser    DocumentParser
	Runs      repository.ParseRunRepository
	Documents repository.DocumentRepository
	Vendors   repository.VendorDirectory
	Metrics   *metrics.Metrics

	workers   int
	reprocess bool
}

type Option func(*Processor)

// WithWorkers bounds the number of files processed concurrently by ProcessBatch.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithReprocess parses files again even if their content was already parsed.
func WithReprocess(on bool) Option {
	return func(p *Processor) { p.reprocess = on }
}

// WithMetrics records processing outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.Metrics = m }
}

func NewProcessor(
	logger *slog.Logger,
	ing ingest.Ingestor,
	parser DocumentParser,
	runs repository.ParseRunRepository,
	docs repository.DocumentRepository,
	vendors repository.VendorDirectory,
	opts ...Option,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		Logger:    logger,
		Ingestor:  ing,
		Parser:    parser,
		Runs:      runs,
		Documents: docs,
		Vendors:   vendors,
		workers:   4,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile registers the file, parses it and stores the record, tracking the
// attempt as a parse run. Content that was already parsed is skipped unless the
// processor was built WithReprocess.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}
	defer p.Metrics.Track()()
	start := time.Now()

	ing, err := p.Ingestor.IngestPath(ctx, path)
	if err != nil {
		p.Metrics.ObserveFailure(metrics.ReasonIntake)
		p.Logger.Error("processor.ingest.failed", "path", path, "err", err)
		return p.fail(res, common.WrapError(err, "ingest "+path))
	}
	res.FileID = ing.FileID
	ctx = common.WithFileID(ctx, ing.FileID)

	if ing.Deduplicated && !p.reprocess {
		parsed, err := p.alreadyParsed(ctx, ing.FileID)
		if err != nil {
			p.Metrics.ObserveFailure(metrics.ReasonStorage)
			return p.fail(res, err)
		}
		if parsed {
			p.Metrics.ObserveDuplicate()
			p.Logger.Info("processor.skip.duplicate", append(common.LogAttrs(ctx), "path", path)...)
			res.Skipped = true
			return res, nil
		}
	}

	run, err := p.Runs.Start(ctx, ing.FileID, constants.MapExtToFormat(ing.FileExt))
	if err != nil {
		p.Metrics.ObserveFailure(metrics.ReasonStorage)
		return p.fail(res, common.WrapError(err, "start parse run"))
	}
	res.RunID = run.ID
	ctx = common.WithRunID(ctx, run.ID)

	rec, err := p.Parser.Parse(ctx, path)
	if err != nil {
		p.Metrics.ObserveFailure(metrics.ReasonUnreadable)
		p.Logger.Error("processor.parse.failed", append(common.LogAttrs(ctx), "path", path, "err", err)...)
		p.finishFailure(ctx, run.ID, err)
		return p.fail(res, err)
	}
	res.DocumentType = rec.DocumentType
	res.Confidence = rec.ExtractionConfidence

	src := repository.DocumentSource{FileID: &ing.FileID, Ref: ing.SourcePath}
	var vendor *entity.Vendor
	if rec.Vendor != nil {
		vendor, err = p.Vendors.ResolveOrCreate(ctx, *rec.Vendor)
		if err != nil {
			// the record is still worth keeping without a vendor link
			p.Logger.Warn("processor.vendor.resolve_failed", append(common.LogAttrs(ctx), "vendor", *rec.Vendor, "err", err)...)
		} else {
			src.VendorID = &vendor.ID
		}
	}

	docID, err := p.Documents.Save(ctx, rec, src)
	if err != nil {
		p.Metrics.ObserveFailure(metrics.ReasonStorage)
		p.Logger.Error("processor.save.failed", append(common.LogAttrs(ctx), "err", err)...)
		p.finishFailure(ctx, run.ID, err)
		return p.fail(res, common.WrapError(err, "save record"))
	}
	res.DocumentID = docID

	if vendor != nil {
		if err := p.Vendors.AccumulateStatistics(ctx, vendor.ID, rec); err != nil {
			p.Logger.Warn("processor.vendor.stats_failed", append(common.LogAttrs(ctx), "vendor_id", vendor.ID, "err", err)...)
		}
	}

	if err := p.Runs.FinishSuccess(ctx, run.ID, docID, rec.ExtractionConfidence, rec.ExtractionMethod); err != nil {
		p.Metrics.ObserveFailure(metrics.ReasonStorage)
		return p.fail(res, common.WrapError(err, "finish parse run"))
	}

	took := time.Since(start)
	p.Metrics.ObserveParsed(rec.DocumentType, rec.ExtractionConfidence, took)
	p.Logger.Info("processor.parse.ok", append(common.LogAttrs(ctx),
		"path", path,
		"document_id", docID,
		"document_type", rec.DocumentType,
		"confidence", rec.ExtractionConfidence,
		"method", rec.ExtractionMethod,
		"took", took,
	)...)
	return res, nil
}

// ProcessBatch processes paths concurrently, at most WithWorkers at a time.
// Per-file failures are recorded in the results, which keep the input order; the
// returned error is non-nil only when ctx ends before every file was attempted.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string) ([]Result, BatchStats, error) {
	start := time.Now()
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Path: path, Err: err}
				return nil
			}
			r, _ := p.ProcessFile(gctx, path)
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	stats := BatchStats{Total: len(paths), ByType: map[constants.DocumentType]int{}}
	for i := range results {
		r := &results[i]
		if r.Path == "" {
			r.Path = paths[i]
			r.Err = ctx.Err()
		}
		switch {
		case r.Err != nil:
			stats.Failed++
			if stats.FirstFail == nil {
				stats.FirstFail = r.Err
			}
		case r.Skipped:
			stats.Skipped++
		default:
			stats.Parsed++
			stats.ByType[r.DocumentType]++
		}
	}
	stats.Duration = time.Since(start)

	p.Logger.Info("processor.batch.done",
		"total", stats.Total,
		"parsed", stats.Parsed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"took", stats.Duration,
	)
	if err := ctx.Err(); err != nil {
		return results, stats, err
	}
	return results, stats, nil
}

// ProcessDirectory discovers accepted files under root and processes them as a batch.
func (p *Processor) ProcessDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, BatchStats, error) {
	paths, dir, err := ingest.Discover(root, skipHidden)
	if err != nil {
		return nil, BatchStats{}, err
	}
	p.Logger.Info("processor.directory.discovered", "root", root, "scanned", dir.Scanned, "matched", dir.Matched)
	return p.ProcessBatch(ctx, paths)
}

func (p *Processor) alreadyParsed(ctx context.Context, fileID uuid.UUID) (bool, error) {
	runs, err := p.Runs.ListByFile(ctx, fileID)
	if err != nil {
		return false, common.WrapError(err, "list parse runs")
	}
	for _, r := range runs {
		if r.Status == string(constants.JobStatusParsed) {
			return true, nil
		}
	}
	return false, nil
}

func (p *Processor) finishFailure(ctx context.Context, runID uuid.UUID, cause error) {
	// the run must reach a terminal state even if the caller gave up
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.Runs.FinishFailure(ctx, runID, cause.Error()); err != nil {
		p.Logger.Error("processor.run.finish_failed", "run_id", runID, "err", errors.Join(cause, err))
	}
}

func (p *Processor) fail(res Result, err error) (Result, error) {
	res.Err = err
	return res, err
}
