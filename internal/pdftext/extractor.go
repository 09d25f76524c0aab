package pdftext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/extract"
)

const (
	MethodPDFText   = "pdf-text"  // embedded text layer via github.com/ledongthuc/pdf
	MethodPdftotext = "pdftotext" // poppler binary
	StrategyAuto    = "auto"
)

type Config struct {
	Strategy  string // "auto" | "pdf-text" | "pdftotext"; empty -> auto
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxPages  int    // 0 = no limit
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string
	Duration time.Duration
	Warnings []string
}

// Extractor reads the embedded text layer of a PDF. It never rasterizes or OCRs.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyAuto
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// Extract returns the normalized text of all pages in physical order.
// Every failure is an *extract.UnreadablePDFError.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if constants.MapExtToFormat(ext) != constants.PDF {
		e.logger.Error("unsupported extension", "path", path, "extension", ext)
		return ExtractionResult{}, extract.Unreadable(path, "unsupported extension", fmt.Errorf("%q", ext))
	}
	e.logger.Debug("starting text extraction", "path", path, "strategy", e.cfg.Strategy)

	var (
		res ExtractionResult
		err error
	)
	switch e.cfg.Strategy {
	case MethodPDFText:
		res, err = e.run(ctx, path, MethodPDFText)
	case MethodPdftotext:
		res, err = e.run(ctx, path, MethodPdftotext)
	default:
		res, err = e.run(ctx, path, MethodPDFText)
		if err != nil && ctx.Err() == nil {
			e.logger.Warn("pdf text layer unreadable, trying pdftotext", "path", path, "error", err)
			fallback, ferr := e.run(ctx, path, MethodPdftotext)
			if ferr == nil {
				fallback.Warnings = append(fallback.Warnings, res.Warnings...)
				fallback.Warnings = append(fallback.Warnings, err.Error())
				res, err = fallback, nil
			} else {
				err = errors.Join(err, ferr)
			}
		}
	}
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("text extraction failed", "path", path, "duration_ms", res.Duration.Milliseconds(), "error", err)
		var ue *extract.UnreadablePDFError
		if errors.As(err, &ue) {
			return res, err
		}
		return res, extract.Unreadable(path, "text extraction failed", err)
	}

	e.logger.Info("text extracted",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) run(ctx context.Context, path, method string) (ExtractionResult, error) {
	var (
		text  string
		pages int
		warns []string
		err   error
	)
	switch method {
	case MethodPdftotext:
		text, pages, warns, err = e.pdfToText(ctx, path)
	default:
		text, pages, warns, err = e.pdfTextLayer(ctx, path)
	}
	res := ExtractionResult{Pages: pages, Method: method, Warnings: warns}
	if err != nil {
		return res, fmt.Errorf("%s: %w", method, err)
	}
	res.Text = Normalize(text)
	if strings.TrimSpace(res.Text) == "" {
		return res, extract.Unreadable(path, "no extractable text", fmt.Errorf("%s returned no text", method))
	}
	return res, nil
}
