package docparse

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

func TestCleanVendor(t *testing.T) {
	tests := []struct {
		in   string
		want *string
	}{
		{"Nova Plastics", strPtr("Nova Plastics")},
		{"  Nova \t  Plastics\n", strPtr("Nova Plastics")},
		{"Acme Corp.,", strPtr("Acme Corp")},
		{"Acme Corp ;:", strPtr("Acme Corp")},
		{"Smith & Sons, Inc.", strPtr("Smith & Sons, Inc")},
		{" .,; ", nil},
	}
	c := NewCleaner(discardLogger())
	for _, tt := range tests {
		r := entity.NewRecord(constants.Unknown)
		r.Vendor = strPtr(tt.in)
		c.Clean(r)
		if diff := cmp.Diff(tt.want, r.Vendor); diff != "" {
			t.Errorf("vendor %q (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestCleanDocumentNumberKeepsMirror(t *testing.T) {
	c := NewCleaner(discardLogger())
	for _, dt := range constants.ClassificationOrder {
		r := entity.NewRecord(dt)
		r.SetIdentifier(strPtr("  po-1003 "))
		c.Clean(r)
		if r.DocumentNumber == nil || *r.DocumentNumber != "PO-1003" {
			t.Errorf("%s: document number = %v", dt, r.DocumentNumber)
		}
		if id := r.Identifier(); id == nil || *id != *r.DocumentNumber {
			t.Errorf("%s: identifier %v does not mirror document number", dt, id)
		}
	}
}

func TestCleanDateYearBounds(t *testing.T) {
	tests := []struct {
		year int
		keep bool
	}{
		{1999, false},
		{2000, true},
		{2024, true},
		{2030, true},
		{2031, false},
	}
	c := NewCleaner(discardLogger())
	for _, tt := range tests {
		r := entity.NewRecord(constants.Invoice)
		d := time.Date(tt.year, 6, 1, 0, 0, 0, 0, time.UTC)
		r.Date = &d
		issues := c.Clean(r)
		if kept := r.Date != nil; kept != tt.keep {
			t.Errorf("year %d: kept = %v, want %v", tt.year, kept, tt.keep)
		}
		if tt.keep != (len(issues) == 0) {
			t.Errorf("year %d: issues = %v", tt.year, issues)
		}
	}
}

func TestCleanTotal(t *testing.T) {
	tests := []struct {
		total string
		keep  bool
	}{
		{"-5", false},
		{"0", false},
		{"0.01", true},
		{"77890.00", true},
	}
	c := NewCleaner(discardLogger())
	for _, tt := range tests {
		r := entity.NewRecord(constants.PurchaseOrder)
		r.SetTotalAmount(decPtr(tt.total))
		c.Clean(r)
		if kept := r.TotalAmount() != nil; kept != tt.keep {
			t.Errorf("total %s: kept = %v, want %v", tt.total, kept, tt.keep)
		}
	}
}

func TestCleanFlagsLineItemsWithoutDroppingThem(t *testing.T) {
	r := entity.NewRecord(constants.PurchaseOrder)
	r.LineItems = []entity.LineItem{
		{ItemDescription: "ok", Quantity: 1, UnitPrice: dec("1")},
		{ItemDescription: "zero qty", Quantity: 0, UnitPrice: dec("1")},
		{ItemDescription: "free", Quantity: 2, UnitPrice: dec("0")},
	}
	issues := NewCleaner(discardLogger()).Clean(r)

	if len(r.LineItems) != 3 {
		t.Fatalf("line items dropped: %d left", len(r.LineItems))
	}
	want := []Issue{
		{Field: "line_items.quantity", Index: 1, Message: "non-positive quantity 0"},
		{Field: "line_items.unit_price", Index: 2, Message: "non-positive unit price 0"},
	}
	if diff := cmp.Diff(want, issues); diff != "" {
		t.Errorf("issues (-want +got):\n%s", diff)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	p := newTestParser(t, staticText(""))
	dirty := "Purchase Order\nPO Number: po-77\nVendor: Acme   Supply Co. ,\nDate: 1999-01-01\nTotal: $0.00\nItem: Widget\nQuantity: 0\nUnit Price: $5.00"

	for _, text := range []string{poText, invoiceText, receiptText, dirty, "no structure at all"} {
		once := p.ParseText(text, "pdf-text")
		twice := once.Clone()
		p.Clean(twice)
		if diff := cmp.Diff(once, twice, decimalEqual); diff != "" {
			t.Errorf("second clean changed the record (-once +twice):\n%s", diff)
		}
	}
}
