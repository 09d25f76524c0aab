package pdftext

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/extract"
)

// TextAdapter exposes an Extractor as an extract.TextExtractor.
type TextAdapter struct {
	extractor *Extractor
	logger    *slog.Logger
}

var _ extract.TextExtractor = (*TextAdapter)(nil)

func NewTextAdapter(e *Extractor, l *slog.Logger) *TextAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &TextAdapter{
		extractor: e,
		logger:    l,
	}
}

func (a *TextAdapter) Extract(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	r, err := a.extractor.Extract(ctx, path)
	if err != nil {
		return extract.TextExtractionResult{}, err
	}
	if len(r.Warnings) > 0 {
		a.logger.Debug("text acquired with warnings", "path", path, "warnings", r.Warnings)
	}
	return extract.TextExtractionResult{
		Text:       r.Text,
		Pages:      r.Pages,
		SourceType: constants.PDF,
		Method:     r.Method,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
	}, nil
}
