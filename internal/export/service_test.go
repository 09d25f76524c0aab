package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
	"github.com/joseph-ayodele/docs-tracker/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

type fixture struct {
	svc   *Service
	docs  repository.DocumentRepository
	files repository.DocumentFileRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.OpenSQLite(":memory:", discardLogger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	docs := repository.NewDocumentRepository(db, discardLogger())
	files := repository.NewDocumentFileRepository(db, discardLogger())
	return &fixture{svc: NewService(docs, files, discardLogger()), docs: docs, files: files}
}

func (fx *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	file, err := fx.files.Create(ctx, "/inbox/po-1003.pdf", "po-1003.pdf", "pdf", 10, []byte("hash-po"), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	date := time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("77890.00")
	po := entity.NewRecord(constants.PurchaseOrder)
	po.SetIdentifier(strPtr("PO-1003"))
	po.Vendor = strPtr("Nova Plastics")
	po.Date = &date
	po.SetTotalAmount(&total)
	po.ExtractionConfidence = 1
	po.ExtractionMethod = "pdf-text"
	po.LineItems = append(po.LineItems, entity.LineItem{
		ItemDescription:      "Polycarbonate Sheet",
		Quantity:             200,
		UnitPrice:            decimal.RequireFromString("389.45"),
		LineTotal:            total,
		ExtractionConfidence: 0.7,
	})
	if _, err := fx.docs.Save(ctx, po, repository.DocumentSource{FileID: &file.ID, Ref: "po-1003.pdf"}); err != nil {
		t.Fatal(err)
	}

	received := time.Date(2024, 10, 20, 0, 0, 0, 0, time.UTC)
	rc := entity.NewRecord(constants.Receipt)
	rc.SetIdentifier(strPtr("RCPT-3001"))
	d, _ := rc.Receipt()
	d.ReferencePO = strPtr("PO-1003")
	d.DateReceived = &received
	rc.Date = &received
	rc.ExtractionConfidence = 0.7
	rc.ExtractionMethod = "pdftotext"
	if _, err := fx.docs.Save(ctx, rc, repository.DocumentSource{Ref: "/inbox/rcpt-3001.pdf"}); err != nil {
		t.Fatal(err)
	}
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	wb, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { _ = wb.Close() })
	return wb
}

func raw(t *testing.T, wb *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := wb.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("%s!%s: %v", sheet, cell, err)
	}
	return v
}

func TestExportDocumentsXLSX(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t)

	b, err := fx.svc.ExportDocumentsXLSX(context.Background(), repository.ListFilter{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	wb := open(t, b)

	if diff := cmp.Diff([]string{DocumentsSheet, LineItemsSheet}, wb.GetSheetList()); diff != "" {
		t.Errorf("sheets (-want +got):\n%s", diff)
	}

	rows, err := wb.GetRows(DocumentsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("document rows = %d, want header + 2", len(rows))
	}
	if diff := cmp.Diff(documentHeaders, rows[0]); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"purchase_order", "PO-1003", "Nova Plastics", "2024-10-08", ""}, rows[1][1:6]); diff != "" {
		t.Errorf("po row (-want +got):\n%s", diff)
	}
	if got := raw(t, wb, DocumentsSheet, "G2"); got != "77890" {
		t.Errorf("po total = %q", got)
	}
	if got := raw(t, wb, DocumentsSheet, "J2"); got != "/inbox/po-1003.pdf" {
		t.Errorf("po source = %q, want the registered file path", got)
	}
	if diff := cmp.Diff([]string{"receipt", "RCPT-3001", "", "2024-10-20", "PO-1003"}, rows[2][1:6]); diff != "" {
		t.Errorf("receipt row (-want +got):\n%s", diff)
	}
	if got := raw(t, wb, DocumentsSheet, "G3"); got != "" {
		t.Errorf("receipt total = %q, want empty", got)
	}
	if got := raw(t, wb, DocumentsSheet, "J3"); got != "/inbox/rcpt-3001.pdf" {
		t.Errorf("receipt source = %q", got)
	}

	items, err := wb.GetRows(LineItemsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("line item rows = %d, want header + 1", len(items))
	}
	if items[1][1] != "PO-1003" || items[1][3] != "Polycarbonate Sheet" {
		t.Errorf("line item row = %v", items[1])
	}
	if got := raw(t, wb, LineItemsSheet, "E2"); got != "200" {
		t.Errorf("quantity = %q", got)
	}
	if got := raw(t, wb, LineItemsSheet, "F2"); got != "389.45" {
		t.Errorf("unit price = %q", got)
	}
}

func TestExportFiltersByType(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t)

	var buf bytes.Buffer
	if err := fx.svc.WriteDocumentsXLSX(context.Background(), &buf, repository.ListFilter{Type: constants.Receipt}); err != nil {
		t.Fatal(err)
	}
	rows, err := open(t, buf.Bytes()).GetRows(DocumentsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][1] != "receipt" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestExportEmpty(t *testing.T) {
	fx := newFixture(t)
	b, err := fx.svc.ExportDocumentsXLSX(context.Background(), repository.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	rows, err := open(t, b).GetRows(DocumentsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %v, want only the header", rows)
	}
}

func TestDateWindow(t *testing.T) {
	from := time.Date(2024, 10, 8, 15, 4, 5, 0, time.UTC)
	f, to := dateWindow(&from, nil)
	if !f.Equal(time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", f)
	}
	now := time.Now().UTC()
	if to == nil || to.Year() != now.Year() || to.YearDay() != now.YearDay() {
		t.Errorf("to = %v, want today", to)
	}

	f, to = dateWindow(nil, nil)
	if f != nil || to != nil {
		t.Errorf("open window = %v..%v", f, to)
	}
}
