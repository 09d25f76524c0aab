package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docs-tracker/internal/entity"
	"github.com/joseph-ayodele/docs-tracker/internal/repository"
)

const (
	DocumentsSheet = "Documents"
	LineItemsSheet = "Line Items"
)

var documentHeaders = []string{
	"Document ID",
	"Document Type",
	"Document Number",
	"Vendor",
	"Date",
	"Reference PO",
	"Total Amount",
	"Confidence",
	"Method",
	"Source File",
}

var lineItemHeaders = []string{
	"Document ID",
	"Document Number",
	"Line",
	"Item Description",
	"Quantity",
	"Unit Price",
	"Line Total",
	"Confidence",
}

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	docsRepo  repository.DocumentRepository
	filesRepo repository.DocumentFileRepository
	logger    *slog.Logger
}

func NewService(docs repository.DocumentRepository, files repository.DocumentFileRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docsRepo: docs, filesRepo: files, logger: logger}
}

// ExportDocumentsXLSX returns an XLSX workbook (as bytes) of the stored documents
// matching f: one row per document and one row per line item.
// If only From is provided -> From..today (inclusive).
// If only To is provided   -> beginning..To (inclusive).
func (s *Service) ExportDocumentsXLSX(ctx context.Context, f repository.ListFilter) ([]byte, error) {
	start := time.Now()

	f.From, f.To = dateWindow(f.From, f.To)
	docs, err := s.docsRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	wb, err := s.workbook(ctx, docs)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := wb.Close(); err != nil {
			s.logger.Warn("xlsx close", "error", err)
		}
	}()

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"document_type", f.Type,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteDocumentsXLSX streams the export to w.
func (s *Service) WriteDocumentsXLSX(ctx context.Context, w io.Writer, f repository.ListFilter) error {
	b, err := s.ExportDocumentsXLSX(ctx, f)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (s *Service) workbook(ctx context.Context, docs []*entity.StoredDocument) (*excelize.File, error) {
	wb := excelize.NewFile()
	if err := wb.SetSheetName("Sheet1", DocumentsSheet); err != nil {
		return nil, err
	}
	if _, err := wb.NewSheet(LineItemsSheet); err != nil {
		return nil, err
	}
	money, err := wb.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}

	writeHeader(wb, DocumentsSheet, documentHeaders)
	writeHeader(wb, LineItemsSheet, lineItemHeaders)

	paths := map[string]string{}
	docRow, itemRow := 2, 2
	for _, d := range docs {
		rec := d.Record
		number := deref(rec.DocumentNumber)

		write(wb, DocumentsSheet, docRow,
			d.ID.String(),
			string(rec.DocumentType),
			number,
			deref(rec.Vendor),
			deref(entity.FormatDate(rec.Date)),
			deref(rec.ReferencePO()),
			amount(rec.TotalAmount()),
			rec.ExtractionConfidence,
			rec.ExtractionMethod,
			s.sourcePath(ctx, d, paths),
		)
		docRow++

		for i, li := range rec.LineItems {
			write(wb, LineItemsSheet, itemRow,
				d.ID.String(),
				number,
				i+1,
				li.ItemDescription,
				li.Quantity,
				li.UnitPrice.InexactFloat64(),
				li.LineTotal.InexactFloat64(),
				li.ExtractionConfidence,
			)
			itemRow++
		}
	}

	if docRow > 2 {
		_ = wb.SetCellStyle(DocumentsSheet, "G2", fmt.Sprintf("G%d", docRow-1), money)
	}
	if itemRow > 2 {
		_ = wb.SetCellStyle(LineItemsSheet, "F2", fmt.Sprintf("G%d", itemRow-1), money)
	}

	// Widen a few columns
	_ = wb.SetColWidth(DocumentsSheet, "A", "A", 38) // id
	_ = wb.SetColWidth(DocumentsSheet, "B", "F", 18)
	_ = wb.SetColWidth(DocumentsSheet, "G", "I", 14)
	_ = wb.SetColWidth(DocumentsSheet, "J", "J", 60) // path
	_ = wb.SetColWidth(LineItemsSheet, "A", "A", 38)
	_ = wb.SetColWidth(LineItemsSheet, "D", "D", 36) // description

	_ = wb.AutoFilter(DocumentsSheet, fmt.Sprintf("A1:J%d", max(docRow-1, 1)), nil)

	idx, _ := wb.GetSheetIndex(DocumentsSheet)
	wb.SetActiveSheet(idx)
	return wb, nil
}

// sourcePath prefers the registered file's path, falling back to the stored ref.
func (s *Service) sourcePath(ctx context.Context, d *entity.StoredDocument, cache map[string]string) string {
	if d.FileID == nil || s.filesRepo == nil {
		return d.SourceRef
	}
	key := d.FileID.String()
	if p, ok := cache[key]; ok {
		return p
	}
	p := d.SourceRef
	if f, err := s.filesRepo.GetByID(ctx, *d.FileID); err == nil {
		p = f.SourcePath
	} else {
		s.logger.Debug("source file lookup failed", "file_id", key, "error", err)
	}
	cache[key] = p
	return p
}

func writeHeader(wb *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.SetCellValue(sheet, cell, h)
	}
}

func write(wb *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = wb.SetCellValue(sheet, cell, v)
	}
}

// dateWindow normalizes the bounds to UTC dates; a lone lower bound ends today.
func dateWindow(from, to *time.Time) (*time.Time, *time.Time) {
	day := func(t time.Time) *time.Time {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	var f, t *time.Time
	if from != nil {
		f = day(*from)
	}
	if to != nil {
		t = day(*to)
	}
	if f != nil && t == nil {
		t = day(time.Now().UTC())
	}
	return f, t
}

func amount(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
