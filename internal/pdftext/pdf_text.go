package pdftext

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfTextLayer reads the text layer page by page. Pages are joined with a newline so
// line-anchored patterns never see two pages glued together.
func (e *Extractor) pdfTextLayer(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// the reader panics on some malformed objects
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("close pdf failed", "path", path, "error", cerr)
		}
	}()

	total := r.NumPage()
	limit := total
	if e.cfg.MaxPages > 0 && limit > e.cfg.MaxPages {
		limit = e.cfg.MaxPages
		warnings = append(warnings, fmt.Sprintf("only first %d of %d pages read", limit, total))
	}

	text, err = readPages(ctx, limit, func(i int) (string, error) {
		p := r.Page(i)
		if p.V.IsNull() {
			return "", errors.New("missing page object")
		}
		return p.GetPlainText(nil)
	})
	if err != nil {
		return "", total, warnings, err
	}
	return text, total, warnings, nil
}

// readPages joins pages 1..limit with a newline. A page that cannot be read fails
// the whole file so a partial text never reaches classification.
func readPages(ctx context.Context, limit int, page func(i int) (string, error)) (string, error) {
	parts := make([]string, 0, limit)
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pt, err := page(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		parts = append(parts, pt)
	}
	return strings.Join(parts, "\n"), nil
}
