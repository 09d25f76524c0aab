package docparse

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
	"github.com/joseph-ayodele/docs-tracker/internal/extract"
	"github.com/joseph-ayodele/docs-tracker/internal/pdftext"
)

// Parser turns a PDF into a structured record: acquire text, classify, extract the
// fields of that type, score, clean. Only text acquisition can fail.
type Parser struct {
	text       extract.TextExtractor
	guard      *pdftext.Guard
	catalog    *catalog.Catalog
	classifier *Classifier
	fields     *FieldExtractor
	cleaner    *Cleaner
	timeout    time.Duration
	logger     *slog.Logger
}

type Option func(*Parser)

// WithGuard inspects files before reading them and copies what it learns into metadata.
func WithGuard(g *pdftext.Guard) Option {
	return func(p *Parser) { p.guard = g }
}

// WithAcquireTimeout bounds text acquisition; a timeout is reported as ErrUnreadablePDF.
func WithAcquireTimeout(d time.Duration) Option {
	return func(p *Parser) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewParser(text extract.TextExtractor, c *catalog.Catalog, logger *slog.Logger, opts ...Option) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Parser{
		text:       text,
		catalog:    c,
		classifier: NewClassifier(c, logger),
		fields:     NewFieldExtractor(c, logger),
		cleaner:    NewCleaner(logger),
		logger:     logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// IsSupported reports whether the parser accepts the file by its extension.
func IsSupported(path string) bool {
	return constants.IsAllowedExt(filepath.Ext(path))
}

// Parse reads one PDF and returns a new record owned by the caller. The error, if
// any, matches extract.ErrUnreadablePDF.
func (p *Parser) Parse(ctx context.Context, path string) (*entity.Record, error) {
	start := time.Now()

	var info *pdftext.Info
	if p.guard != nil {
		i, err := p.guard.Inspect(ctx, path)
		if err != nil {
			return nil, err
		}
		info = &i
	}

	res, err := p.acquire(ctx, path)
	if err != nil {
		p.logger.Error("parse failed", "path", path, "error", err)
		return nil, err
	}

	rec := p.ParseText(res.Text, res.Method)
	rec.Metadata["source_file"] = path
	rec.Metadata["pages"] = res.Pages
	if len(res.Warnings) > 0 {
		rec.Metadata["extraction_warnings"] = append([]string(nil), res.Warnings...)
	}
	if info != nil {
		maps.Copy(rec.Metadata, info.Metadata())
	}

	p.logger.Info("document parsed",
		"path", path,
		"document_type", rec.DocumentType,
		"document_number", deref(rec.DocumentNumber),
		"confidence", rec.ExtractionConfidence,
		"method", rec.ExtractionMethod,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// ParseText runs classification, extraction and cleaning on already acquired text.
// method is recorded as the extraction method.
func (p *Parser) ParseText(text, method string) *entity.Record {
	docType := p.classifier.Classify(text)

	var rec *entity.Record
	switch docType {
	case constants.PurchaseOrder:
		rec = p.extractPurchaseOrder(text)
	case constants.Invoice:
		rec = p.extractInvoice(text)
	case constants.Receipt:
		rec = p.extractReceipt(text)
	default:
		rec = p.extractGeneric(text)
	}

	rec.ExtractionMethod = method
	rec.RawText = text
	rec.Metadata["catalog_version"] = p.catalog.Version()

	if issues := p.cleaner.Clean(rec); len(issues) > 0 {
		p.logger.Debug("record cleaned with issues", "document_type", rec.DocumentType, "issues", len(issues))
	}
	return rec
}

// Clean re-runs the cleaner on a record, e.g. after manual edits.
func (p *Parser) Clean(rec *entity.Record) []Issue {
	return p.cleaner.Clean(rec)
}

// acquire races text extraction against the context so a stuck reader cannot hold
// the caller past its deadline.
func (p *Parser) acquire(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	type outcome struct {
		res extract.TextExtractionResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.text.Extract(ctx, path)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(o.err, extract.ErrUnreadablePDF) {
				return o.res, o.err
			}
			return o.res, extract.Unreadable(path, "text extraction failed", o.err)
		}
		if strings.TrimSpace(o.res.Text) == "" {
			return o.res, extract.Unreadable(path, "no extractable text", nil)
		}
		return o.res, nil
	case <-ctx.Done():
		return extract.TextExtractionResult{}, extract.Unreadable(path, "text acquisition timed out", ctx.Err())
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
