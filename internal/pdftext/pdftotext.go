package pdftext

import (
	"context"
	"strings"
)

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// form feed separates pages; the last page is terminated by one too
	pages = strings.Count(text, "\f")
	if pages == 0 && strings.TrimSpace(text) != "" {
		pages = 1
	}
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		kept := strings.SplitN(text, "\f", e.cfg.MaxPages+1)[:e.cfg.MaxPages]
		text = strings.Join(kept, "\f")
	}
	return strings.ReplaceAll(text, "\f", "\n"), pages, nil, nil
}
