package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestDB opens a migrated in-memory SQLite database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(":memory:", discardLogger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func newInt(n int) *int { return &n }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func purchaseOrder(number, vendor string, total string, date *time.Time) *entity.Record {
	rec := entity.NewRecord(constants.PurchaseOrder)
	rec.SetIdentifier(strPtr(number))
	rec.Vendor = strPtr(vendor)
	rec.Date = date
	rec.SetTotalAmount(decPtr(total))
	rec.LineItems = append(rec.LineItems, entity.LineItem{
		ItemDescription:      "Polycarbonate Sheet",
		Quantity:             200,
		UnitPrice:            decimal.RequireFromString("389.45"),
		LineTotal:            decimal.RequireFromString("77890.00"),
		ExtractionConfidence: 0.7,
	})
	rec.ExtractionConfidence = 1
	rec.ExtractionMethod = "pdf-text"
	rec.RawText = "Purchase Order\nPO Number: " + number
	rec.Metadata["catalog_version"] = "2.0.0"
	return rec
}
