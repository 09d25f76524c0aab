package extract

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnreadablePDF is the only fatal error of document parsing: the file could not be
// opened, is not a PDF, or yields no text.
var ErrUnreadablePDF = errors.New("unreadable pdf")

// UnreadablePDFError carries the path and reason; errors.Is(err, ErrUnreadablePDF) holds.
type UnreadablePDFError struct {
	Path   string
	Reason string
	Err    error
}

func (e *UnreadablePDFError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable pdf %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("unreadable pdf %q: %s", e.Path, e.Reason)
}

func (e *UnreadablePDFError) Unwrap() error { return e.Err }

func (e *UnreadablePDFError) Is(target error) bool { return target == ErrUnreadablePDF }

// Unreadable builds an *UnreadablePDFError.
func Unreadable(path, reason string, err error) error {
	return &UnreadablePDFError{Path: path, Reason: reason, Err: err}
}

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // "PDF"
	Method     string // "pdf-text" | "pdftotext"
	Duration   time.Duration
	Warnings   []string
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(ctx context.Context, path string) (TextExtractionResult, error)

func (f TextExtractorFunc) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	return f(ctx, path)
}
