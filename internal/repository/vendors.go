package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/common"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

// VendorDirectory deduplicates vendor names and keeps per-vendor statistics.
type VendorDirectory interface {
	ResolveOrCreate(ctx context.Context, name string) (*entity.Vendor, error)
	AccumulateStatistics(ctx context.Context, vendorID uuid.UUID, rec *entity.Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Vendor, error)
	List(ctx context.Context) ([]*entity.Vendor, error)
}

type vendorDirectory struct {
	db     *DB
	logger *slog.Logger
}

func NewVendorDirectory(db *DB, logger *slog.Logger) VendorDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &vendorDirectory{db: db, logger: logger}
}

var companySuffixes = map[string]struct{}{
	"inc": {}, "incorporated": {}, "llc": {}, "ltd": {}, "limited": {},
	"corp": {}, "corporation": {}, "co": {}, "company": {}, "plc": {}, "gmbh": {},
}

// NormalizeVendorName is the dedup key of a vendor: case-folded, punctuation
// removed, trailing company suffixes dropped. "Nova Plastics, Inc." and
// "NOVA PLASTICS" share a key.
func NormalizeVendorName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, name)
	words := strings.Fields(mapped)
	for len(words) > 1 {
		if _, ok := companySuffixes[words[len(words)-1]]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

var vendorColumns = []string{
	"id", "name", "normalized_name", "document_count", "purchase_orders", "invoices", "receipts",
	"total_amount", "last_document_at", "created_at", "updated_at",
}

func (d *vendorDirectory) ResolveOrCreate(ctx context.Context, name string) (*entity.Vendor, error) {
	name = strings.Join(strings.Fields(name), " ")
	key := NormalizeVendorName(name)
	v := common.NewValidator().
		Field("vendor", name, common.Required, common.MaxLength(255)).
		Field("normalized_name", key, common.Required)
	if err := v.Error(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ins := d.db.sql().Insert("vendors").
		Columns("id", "name", "normalized_name", "total_amount", "created_at", "updated_at").
		Values(uuid.NewString(), name, key, "0", d.db.timeArg(now), d.db.timeArg(now)).
		OnConflict(entsql.ConflictColumns("normalized_name"), entsql.DoNothing())
	res, err := execute(ctx, d.db.drv, ins)
	if err != nil {
		d.logger.Error("failed to create vendor", "vendor", name, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}

	vendor, err := d.get(ctx, d.db.drv, entsql.EQ("normalized_name", key), false)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.logger.Info("vendor created", "vendor_id", vendor.ID, "vendor", name, "normalized_name", key)
	}
	return vendor, nil
}

func (d *vendorDirectory) GetByID(ctx context.Context, id uuid.UUID) (*entity.Vendor, error) {
	return d.get(ctx, d.db.drv, entsql.EQ("id", id.String()), false)
}

func (d *vendorDirectory) List(ctx context.Context) ([]*entity.Vendor, error) {
	q := d.db.sql().Select(vendorColumns...).From(d.db.sql().Table("vendors")).OrderBy(entsql.Asc("normalized_name"))
	var out []*entity.Vendor
	err := queryRows(ctx, d.db.drv, q, func(rows *entsql.Rows) error {
		v, err := scanVendor(rows)
		if err == nil {
			out = append(out, v)
		}
		return err
	})
	if err != nil {
		d.logger.Error("failed to list vendors", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

// AccumulateStatistics folds one parsed record into the vendor's counters. It
// reads and writes in one transaction; on Postgres the row is locked.
func (d *vendorDirectory) AccumulateStatistics(ctx context.Context, vendorID uuid.UUID, rec *entity.Record) error {
	err := d.db.tx(ctx, func(tx dialect.ExecQuerier) error {
		v, err := d.get(ctx, tx, entsql.EQ("id", vendorID.String()), true)
		if err != nil {
			return err
		}

		v.DocumentCount++
		switch rec.DocumentType {
		case constants.PurchaseOrder:
			v.PurchaseOrders++
		case constants.Invoice:
			v.Invoices++
		case constants.Receipt:
			v.Receipts++
		}
		if total := rec.TotalAmount(); total != nil {
			v.TotalAmount = v.TotalAmount.Add(*total)
		}
		if rec.Date != nil && (v.LastDocumentAt == nil || rec.Date.After(*v.LastDocumentAt)) {
			date := *rec.Date
			v.LastDocumentAt = &date
		}

		upd := d.db.sql().Update("vendors").
			Set("document_count", v.DocumentCount).
			Set("purchase_orders", v.PurchaseOrders).
			Set("invoices", v.Invoices).
			Set("receipts", v.Receipts).
			Set("total_amount", v.TotalAmount.String()).
			Set("last_document_at", d.db.dateArg(v.LastDocumentAt)).
			Set("updated_at", d.db.timeArg(time.Now())).
			Where(entsql.EQ("id", vendorID.String()))
		_, err = execute(ctx, tx, upd)
		return err
	})
	if err != nil {
		d.logger.Error("failed to accumulate vendor statistics", "vendor_id", vendorID, "error", err)
		if errors.Is(err, common.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	d.logger.Debug("vendor statistics updated", "vendor_id", vendorID, "document_type", rec.DocumentType)
	return nil
}

func (d *vendorDirectory) get(ctx context.Context, eq dialect.ExecQuerier, where *entsql.Predicate, lock bool) (*entity.Vendor, error) {
	q := d.db.sql().Select(vendorColumns...).From(d.db.sql().Table("vendors")).Where(where).Limit(1)
	if lock && d.db.Dialect() == dialect.Postgres {
		q = q.ForUpdate()
	}
	var out *entity.Vendor
	err := queryRows(ctx, eq, q, func(rows *entsql.Rows) error {
		v, err := scanVendor(rows)
		out = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if out == nil {
		return nil, fmt.Errorf("vendor: %w", common.ErrNotFound)
	}
	return out, nil
}

func scanVendor(rows *entsql.Rows) (*entity.Vendor, error) {
	var (
		v                         entity.Vendor
		total                     decimal.Decimal
		last, created, updated    nullTime
		docs, pos, invs, receipts int64
	)
	if err := rows.Scan(&v.ID, &v.Name, &v.NormalizedName, &docs, &pos, &invs, &receipts,
		&total, &last, &created, &updated); err != nil {
		return nil, err
	}
	v.DocumentCount, v.PurchaseOrders, v.Invoices, v.Receipts = int(docs), int(pos), int(invs), int(receipts)
	v.TotalAmount = total
	v.LastDocumentAt = last.datePtr()
	v.CreatedAt = created.Time
	v.UpdatedAt = updated.Time
	return &v, nil
}
