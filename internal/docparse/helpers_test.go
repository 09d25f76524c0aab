package docparse

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
	"github.com/joseph-ayodele/docs-tracker/internal/extract"
)

const poText = `Purchase Order
PO Number: PO-1003
Vendor: Nova Plastics
Date: 2024-10-08
Item: Polycarbonate Sheet
Quantity: 200
Unit Price: $389.45
Total: $77,890.00`

const invoiceText = `INVOICE
Invoice Number: INV-2001
Reference PO: PO-1003
Vendor: Nova Plastics
Invoice Date: 10/15/2024
Item: Polycarbonate Sheet
Quantity: 200
Unit Price: $389.45
Total: $77,890.00`

const receiptText = `Delivery Receipt
Receipt ID: RCPT-3001
Vendor: Nova Plastics
Reference PO: PO-1003
Item: Polycarbonate Sheet
Quantity Received: 200
Date Received: 10/20/2024`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func testFields(t *testing.T) *FieldExtractor {
	return NewFieldExtractor(testCatalog(t), discardLogger())
}

// staticText returns the same text for every path.
func staticText(text string) extract.TextExtractor {
	return extract.TextExtractorFunc(func(context.Context, string) (extract.TextExtractionResult, error) {
		return extract.TextExtractionResult{Text: text, Pages: 1, Method: "pdf-text"}, nil
	})
}

func newTestParser(t *testing.T, tx extract.TextExtractor, opts ...Option) *Parser {
	return NewParser(tx, testCatalog(t), discardLogger(), opts...)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

const eps = 1e-9

func approx(a, b float64) bool {
	d := a - b
	return d < eps && d > -eps
}
