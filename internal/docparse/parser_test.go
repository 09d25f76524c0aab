package docparse

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
	"github.com/joseph-ayodele/docs-tracker/internal/extract"
	"github.com/joseph-ayodele/docs-tracker/internal/pdftext"
)

func TestParsePurchaseOrderScenario(t *testing.T) {
	p := newTestParser(t, staticText(poText))

	rec, err := p.Parse(context.Background(), "po-1003.pdf")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if rec.DocumentType != constants.PurchaseOrder {
		t.Fatalf("type = %s", rec.DocumentType)
	}
	po, ok := rec.PurchaseOrder()
	if !ok {
		t.Fatalf("details = %T", rec.Details)
	}
	if diff := cmp.Diff(strPtr("PO-1003"), rec.DocumentNumber); diff != "" {
		t.Errorf("document number (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(strPtr("PO-1003"), po.PONumber); diff != "" {
		t.Errorf("po number (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(strPtr("Nova Plastics"), rec.Vendor); diff != "" {
		t.Errorf("vendor (-want +got):\n%s", diff)
	}
	if rec.Date == nil || !rec.Date.Equal(time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", rec.Date)
	}
	if po.TotalAmount == nil || po.TotalAmount.StringFixed(2) != "77890.00" {
		t.Errorf("total = %v", po.TotalAmount)
	}

	wantItems := []entity.LineItem{{
		ItemDescription:      "Polycarbonate Sheet",
		Quantity:             200,
		UnitPrice:            dec("389.45"),
		LineTotal:            dec("77890.00"),
		ExtractionConfidence: 0.7,
	}}
	if diff := cmp.Diff(wantItems, rec.LineItems, decimalEqual); diff != "" {
		t.Errorf("line items (-want +got):\n%s", diff)
	}
	if rec.ExtractionConfidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", rec.ExtractionConfidence)
	}
	if rec.ExtractionMethod != "pdf-text" || rec.RawText != poText {
		t.Errorf("method/raw text not stamped: %q", rec.ExtractionMethod)
	}
	if rec.Metadata["source_file"] != "po-1003.pdf" || rec.Metadata["catalog_version"] == "" {
		t.Errorf("metadata = %v", rec.Metadata)
	}
}

func TestParseTextInvoice(t *testing.T) {
	rec := newTestParser(t, nil).ParseText(invoiceText, "pdftotext")

	inv, ok := rec.Invoice()
	if !ok {
		t.Fatalf("type = %s", rec.DocumentType)
	}
	want := &entity.InvoiceDetails{
		InvoiceNumber: strPtr("INV-2001"),
		ReferencePO:   strPtr("PO-1003"),
		Item:          strPtr("Polycarbonate Sheet"),
		Quantity:      func() *int { n := 200; return &n }(),
		UnitPrice:     decPtr("389.45"),
		TotalAmount:   decPtr("77890.00"),
	}
	if diff := cmp.Diff(want, inv, decimalEqual); diff != "" {
		t.Errorf("invoice details (-want +got):\n%s", diff)
	}
	if rec.Date == nil || !rec.Date.Equal(time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", rec.Date)
	}
	if *rec.DocumentNumber != "INV-2001" {
		t.Errorf("document number = %s", *rec.DocumentNumber)
	}
	if rec.ExtractionConfidence != 1.0 {
		t.Errorf("confidence = %v", rec.ExtractionConfidence)
	}
	if rec.ExtractionMethod != "pdftotext" {
		t.Errorf("method = %q", rec.ExtractionMethod)
	}
}

func TestParseTextReceipt(t *testing.T) {
	rec := newTestParser(t, nil).ParseText(receiptText, "pdf-text")

	rcpt, ok := rec.Receipt()
	if !ok {
		t.Fatalf("type = %s", rec.DocumentType)
	}
	received := time.Date(2024, 10, 20, 0, 0, 0, 0, time.UTC)
	want := &entity.ReceiptDetails{
		ReceiptID:        strPtr("RCPT-3001"),
		ReferencePO:      strPtr("PO-1003"),
		Item:             strPtr("Polycarbonate Sheet"),
		QuantityReceived: func() *int { n := 200; return &n }(),
		DateReceived:     &received,
	}
	if diff := cmp.Diff(want, rcpt); diff != "" {
		t.Errorf("receipt details (-want +got):\n%s", diff)
	}
	if rec.Date == nil || !rec.Date.Equal(received) {
		t.Errorf("date should fall back to date received, got %v", rec.Date)
	}
	if rec.Date == rcpt.DateReceived {
		t.Error("date aliases date received")
	}
	if len(rec.LineItems) != 0 {
		t.Errorf("receipts carry no line items, got %+v", rec.LineItems)
	}
	wantConf := WeightDocumentNumber + WeightVendor + WeightDate + WeightIdentifier
	if !approx(rec.ExtractionConfidence, wantConf) {
		t.Errorf("confidence = %v, want %v", rec.ExtractionConfidence, wantConf)
	}
}

func TestParseTextUnknown(t *testing.T) {
	p := newTestParser(t, nil)

	rec := p.ParseText("Hello world, nothing to see here", "pdf-text")
	if rec.DocumentType != constants.Unknown || rec.Details != nil {
		t.Fatalf("type = %s, details = %#v", rec.DocumentType, rec.Details)
	}
	if rec.DocumentNumber != nil || rec.ExtractionConfidence != 0 {
		t.Errorf("document number = %v, confidence = %v", rec.DocumentNumber, rec.ExtractionConfidence)
	}
	if rec.LineItems == nil || rec.Metadata == nil {
		t.Error("containers must be non-nil")
	}

	generic := p.ParseText("Statement\nVendor: Acme Corp\nDate: 2024-01-05", "pdf-text")
	if generic.DocumentType != constants.Unknown {
		t.Fatalf("type = %s", generic.DocumentType)
	}
	if generic.Vendor == nil || *generic.Vendor != "Acme Corp" || generic.Date == nil {
		t.Errorf("vendor = %v, date = %v", generic.Vendor, generic.Date)
	}
	if !approx(generic.ExtractionConfidence, WeightVendor+WeightDate) {
		t.Errorf("confidence = %v", generic.ExtractionConfidence)
	}
}

func TestParseTextBlankVendorLabelIsAbsent(t *testing.T) {
	p := newTestParser(t, nil)
	rec := p.ParseText("Purchase Order\nPO Number: PO-1\nVendor: \nSupplier: Acme Corp", "pdf-text")
	if rec.Vendor != nil {
		t.Fatalf("vendor = %q, want absent", *rec.Vendor)
	}

	bare := p.ParseText("Purchase Order\nPO Number: PO-1", "pdf-text")
	if !approx(rec.ExtractionConfidence, bare.ExtractionConfidence) {
		t.Errorf("confidence = %v, want %v (no vendor signal)", rec.ExtractionConfidence, bare.ExtractionConfidence)
	}
}

func TestParseTextMissingUnitPrice(t *testing.T) {
	text := "Purchase Order\nPO Number: PO-1\nItem: Widget\nQuantity: 5\nTotal: $50.00"
	rec := newTestParser(t, nil).ParseText(text, "pdf-text")
	if rec.LineItems == nil || len(rec.LineItems) != 0 {
		t.Fatalf("line items = %#v, want empty", rec.LineItems)
	}
}

func TestParseTextCleansOutOfRangeValues(t *testing.T) {
	text := "Purchase Order\nPO Number: po-9\nVendor: Acme Corp.\nDate: 1999-12-31\nTotal: $0.00"
	rec := newTestParser(t, nil).ParseText(text, "pdf-text")

	if rec.Date != nil {
		t.Errorf("date = %v, want discarded", rec.Date)
	}
	if rec.TotalAmount() != nil {
		t.Errorf("total = %v, want discarded", rec.TotalAmount())
	}
	if *rec.DocumentNumber != "PO-9" || *rec.Vendor != "Acme Corp" {
		t.Errorf("document number = %s, vendor = %s", *rec.DocumentNumber, *rec.Vendor)
	}
}

func TestParseReturnsFreshRecords(t *testing.T) {
	p := newTestParser(t, staticText(poText))
	a, err := p.Parse(context.Background(), "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Parse(context.Background(), "b.pdf")
	if err != nil {
		t.Fatal(err)
	}
	a.LineItems[0].Quantity = 1
	a.Metadata["x"] = true
	if b.LineItems[0].Quantity != 200 {
		t.Error("line items shared across parses")
	}
	if _, ok := b.Metadata["x"]; ok {
		t.Error("metadata shared across parses")
	}
}

func TestParseUnreadable(t *testing.T) {
	tests := []struct {
		name string
		tx   extract.TextExtractor
	}{
		{"extractor error", extract.TextExtractorFunc(func(context.Context, string) (extract.TextExtractionResult, error) {
			return extract.TextExtractionResult{}, errors.New("boom")
		})},
		{"unreadable passthrough", extract.TextExtractorFunc(func(_ context.Context, path string) (extract.TextExtractionResult, error) {
			return extract.TextExtractionResult{}, extract.Unreadable(path, "encrypted", nil)
		})},
		{"blank text", staticText(" \n\t ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := newTestParser(t, tt.tx).Parse(context.Background(), "x.pdf")
			if !errors.Is(err, extract.ErrUnreadablePDF) {
				t.Fatalf("err = %v, want ErrUnreadablePDF", err)
			}
			if rec != nil {
				t.Fatalf("expected no record, got %+v", rec)
			}
		})
	}
}

func TestParseAcquireTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	stuck := extract.TextExtractorFunc(func(context.Context, string) (extract.TextExtractionResult, error) {
		<-block
		return extract.TextExtractionResult{}, nil
	})
	p := newTestParser(t, stuck, WithAcquireTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := p.Parse(context.Background(), "slow.pdf")
	if !errors.Is(err, extract.ErrUnreadablePDF) {
		t.Fatalf("err = %v, want ErrUnreadablePDF", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want the deadline as cause", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Parse waited %s for a stuck extractor", elapsed)
	}
}

func TestParseHonorsCallerDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	stuck := extract.TextExtractorFunc(func(context.Context, string) (extract.TextExtractionResult, error) {
		<-block
		return extract.TextExtractionResult{}, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestParser(t, stuck).Parse(ctx, "slow.pdf")
	if !errors.Is(err, extract.ErrUnreadablePDF) {
		t.Fatalf("err = %v, want ErrUnreadablePDF", err)
	}
}

func TestParseGuardRejectsBeforeExtraction(t *testing.T) {
	called := false
	tx := extract.TextExtractorFunc(func(context.Context, string) (extract.TextExtractionResult, error) {
		called = true
		return extract.TextExtractionResult{Text: poText}, nil
	})
	guard := pdftext.NewGuard(pdftext.GuardConfig{}, discardLogger())
	p := newTestParser(t, tx, WithGuard(guard))

	_, err := p.Parse(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, extract.ErrUnreadablePDF) {
		t.Fatalf("err = %v, want ErrUnreadablePDF", err)
	}
	if called {
		t.Error("extractor ran for a file the guard rejected")
	}
}

func TestIsSupported(t *testing.T) {
	tests := map[string]bool{
		"a.pdf":        true,
		"A.PDF":        true,
		"dir/x.y.pdf":  true,
		"a.txt":        false,
		"pdf":          false,
		"archive.pdfx": false,
	}
	for path, want := range tests {
		if got := IsSupported(path); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDocumentInfoNeedsGuard(t *testing.T) {
	_, err := newTestParser(t, nil).DocumentInfo(context.Background(), "a.pdf")
	if !errors.Is(err, ErrNoGuard) {
		t.Fatalf("err = %v, want ErrNoGuard", err)
	}
}

func TestParserUsesInjectedCatalog(t *testing.T) {
	yaml := `version: "custom"
document_types:
  - type: invoice
    patterns: ['Bill']
fields:
`
	for _, f := range catalog.AllFields {
		yaml += "  " + string(f) + ":\n    - 'Nothing-Matches-(\\d{9})'\n"
	}
	c, err := catalog.Load([]byte(yaml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := NewParser(nil, c, discardLogger()).ParseText("BILL 42", "pdf-text")
	if rec.DocumentType != constants.Invoice {
		t.Errorf("type = %s, want invoice", rec.DocumentType)
	}
	if rec.Metadata["catalog_version"] != "custom" {
		t.Errorf("catalog_version = %v", rec.Metadata["catalog_version"])
	}
}
