package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/common"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

// DocumentSource says where a record came from.
type DocumentSource struct {
	FileID   *uuid.UUID
	VendorID *uuid.UUID
	Ref      string // usually the source path
}

// ListFilter narrows List. Zero values mean no restriction.
type ListFilter struct {
	Type          constants.DocumentType
	VendorID      *uuid.UUID
	From, To      *time.Time // inclusive, on the document date
	MinConfidence float64
	Limit         int
	Offset        int
}

// DocumentRepository stores parsed records and assigns them an identity.
type DocumentRepository interface {
	Save(ctx context.Context, rec *entity.Record, src DocumentSource) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.StoredDocument, error)
	List(ctx context.Context, f ListFilter) ([]*entity.StoredDocument, error)
	CountByType(ctx context.Context) (map[constants.DocumentType]int, error)
}

type documentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

var documentColumns = []string{
	"id", "file_id", "vendor_id", "source_ref", "document_type", "document_number", "vendor",
	"document_date", "total_amount", "reference_po", "item", "quantity", "unit_price", "date_received",
	"extraction_confidence", "extraction_method", "raw_text", "metadata", "created_at",
}

var lineItemColumns = []string{
	"document_id", "line_no", "item_description", "quantity", "unit_price", "line_total", "extraction_confidence",
}

// variantColumns flattens the variant payload into the optional document columns.
type variantColumns struct {
	total        *decimal.Decimal
	referencePO  *string
	item         *string
	quantity     *int
	unitPrice    *decimal.Decimal
	dateReceived *time.Time
}

func variantOf(rec *entity.Record) variantColumns {
	vc := variantColumns{total: rec.TotalAmount(), referencePO: rec.ReferencePO()}
	switch d := rec.Details.(type) {
	case *entity.InvoiceDetails:
		vc.item, vc.quantity, vc.unitPrice = d.Item, d.Quantity, d.UnitPrice
	case *entity.ReceiptDetails:
		vc.item, vc.quantity, vc.dateReceived = d.Item, d.QuantityReceived, d.DateReceived
	}
	return vc
}

func (r *documentRepository) Save(ctx context.Context, rec *entity.Record, src DocumentSource) (uuid.UUID, error) {
	if rec == nil {
		return uuid.Nil, fmt.Errorf("%w: nil record", common.ErrInvalidInput)
	}
	v := common.NewValidator().
		Field("source_ref", src.Ref, common.Required, common.MaxLength(1024)).
		Field("document_type", string(rec.DocumentType), common.OneOf(documentTypeNames()...))
	if err := v.Error(); err != nil {
		return uuid.Nil, err
	}

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: metadata: %w", common.ErrInvalidInput, err)
	}

	id := uuid.New()
	vc := variantOf(rec)
	ins := r.db.sql().Insert("documents").
		Columns(documentColumns...).
		Values(
			id.String(), uuidArg(src.FileID), uuidArg(src.VendorID), src.Ref, string(rec.DocumentType),
			strArg(rec.DocumentNumber), strArg(rec.Vendor), r.db.dateArg(rec.Date), decArg(vc.total),
			strArg(vc.referencePO), strArg(vc.item), intArg(vc.quantity), decArg(vc.unitPrice),
			r.db.dateArg(vc.dateReceived), rec.ExtractionConfidence, rec.ExtractionMethod, rec.RawText,
			string(metadata), r.db.timeArg(time.Now()),
		)

	err = r.db.tx(ctx, func(tx dialect.ExecQuerier) error {
		if _, err := execute(ctx, tx, ins); err != nil {
			return err
		}
		if len(rec.LineItems) == 0 {
			return nil
		}
		items := r.db.sql().Insert("line_items").Columns(lineItemColumns...)
		for i, li := range rec.LineItems {
			items.Values(id.String(), i, li.ItemDescription, li.Quantity, li.UnitPrice.String(), li.LineTotal.String(), li.ExtractionConfidence)
		}
		_, err := execute(ctx, tx, items)
		return err
	})
	if err != nil {
		r.logger.Error("failed to save document", "source_ref", src.Ref, "document_type", rec.DocumentType, "error", err)
		return uuid.Nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	r.logger.Info("document saved",
		"document_id", id,
		"document_type", rec.DocumentType,
		"line_items", len(rec.LineItems),
		"source_ref", src.Ref,
	)
	return id, nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.StoredDocument, error) {
	docs, err := r.list(ctx, r.db.sql().Select(documentColumns...).
		From(r.db.sql().Table("documents")).
		Where(entsql.EQ("id", id.String())))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return docs[0], nil
}

func (r *documentRepository) List(ctx context.Context, f ListFilter) ([]*entity.StoredDocument, error) {
	var preds []*entsql.Predicate
	if f.Type != "" {
		preds = append(preds, entsql.EQ("document_type", string(f.Type)))
	}
	if f.VendorID != nil {
		preds = append(preds, entsql.EQ("vendor_id", f.VendorID.String()))
	}
	if f.From != nil {
		preds = append(preds, entsql.GTE("document_date", r.db.dateArg(f.From)))
	}
	if f.To != nil {
		preds = append(preds, entsql.LTE("document_date", r.db.dateArg(f.To)))
	}
	if f.MinConfidence > 0 {
		preds = append(preds, entsql.GTE("extraction_confidence", f.MinConfidence))
	}

	q := r.db.sql().Select(documentColumns...).
		From(r.db.sql().Table("documents")).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("id"))
	if len(preds) > 0 {
		q = q.Where(entsql.And(preds...))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	return r.list(ctx, q)
}

func (r *documentRepository) CountByType(ctx context.Context) (map[constants.DocumentType]int, error) {
	q := r.db.sql().Select("document_type", entsql.As(entsql.Count("*"), "n")).
		From(r.db.sql().Table("documents")).
		GroupBy("document_type")
	counts := make(map[constants.DocumentType]int)
	err := queryRows(ctx, r.db.drv, q, func(rows *entsql.Rows) error {
		var (
			t string
			n int64
		)
		if err := rows.Scan(&t, &n); err != nil {
			return err
		}
		counts[constants.DocumentType(t)] = int(n)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to count documents", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return counts, nil
}

func (r *documentRepository) list(ctx context.Context, q *entsql.Selector) ([]*entity.StoredDocument, error) {
	var docs []*entity.StoredDocument
	err := queryRows(ctx, r.db.drv, q, func(rows *entsql.Rows) error {
		d, err := scanDocument(rows)
		if err == nil {
			docs = append(docs, d)
		}
		return err
	})
	if err != nil {
		r.logger.Error("failed to query documents", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if err := r.attachLineItems(ctx, docs); err != nil {
		r.logger.Error("failed to load line items", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return docs, nil
}

func (r *documentRepository) attachLineItems(ctx context.Context, docs []*entity.StoredDocument) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*entity.Record, len(docs))
	ids := make([]any, 0, len(docs))
	for _, d := range docs {
		byID[d.ID] = d.Record
		ids = append(ids, d.ID.String())
	}
	q := r.db.sql().Select(lineItemColumns...).
		From(r.db.sql().Table("line_items")).
		Where(entsql.In("document_id", ids...)).
		OrderBy(entsql.Asc("document_id"), entsql.Asc("line_no"))
	return queryRows(ctx, r.db.drv, q, func(rows *entsql.Rows) error {
		var (
			docID     uuid.UUID
			lineNo    int64
			li        entity.LineItem
			qty       int64
			price, lt decimal.Decimal
		)
		if err := rows.Scan(&docID, &lineNo, &li.ItemDescription, &qty, &price, &lt, &li.ExtractionConfidence); err != nil {
			return err
		}
		li.Quantity, li.UnitPrice, li.LineTotal = int(qty), price, lt
		if rec, ok := byID[docID]; ok {
			rec.LineItems = append(rec.LineItems, li)
		}
		return nil
	})
}

func scanDocument(rows *entsql.Rows) (*entity.StoredDocument, error) {
	var (
		id                          uuid.UUID
		fileID, vendorID            uuid.NullUUID
		sourceRef, docType, method  string
		raw                         string
		metadata                    []byte
		number, vendor, refPO, item sql.NullString
		date, received, created     nullTime
		total, unitPrice            decimal.NullDecimal
		quantity                    sql.NullInt64
		confidence                  float64
	)
	if err := rows.Scan(&id, &fileID, &vendorID, &sourceRef, &docType, &number, &vendor,
		&date, &total, &refPO, &item, &quantity, &unitPrice, &received,
		&confidence, &method, &raw, &metadata, &created); err != nil {
		return nil, err
	}

	t, ok := constants.ParseDocumentType(docType)
	if !ok {
		return nil, fmt.Errorf("document %s: unknown document type %q", id, docType)
	}
	rec := entity.NewRecord(t)
	rec.SetIdentifier(stringPtr(number))
	rec.Vendor = stringPtr(vendor)
	rec.Date = date.datePtr()
	rec.SetTotalAmount(decimalPtr(total))
	switch d := rec.Details.(type) {
	case *entity.InvoiceDetails:
		d.ReferencePO = stringPtr(refPO)
		d.Item = stringPtr(item)
		d.Quantity = intPtr(quantity)
		d.UnitPrice = decimalPtr(unitPrice)
	case *entity.ReceiptDetails:
		d.ReferencePO = stringPtr(refPO)
		d.Item = stringPtr(item)
		d.QuantityReceived = intPtr(quantity)
		d.DateReceived = received.datePtr()
	}
	rec.ExtractionConfidence = confidence
	rec.ExtractionMethod = method
	rec.RawText = raw
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, errors.Join(fmt.Errorf("document %s: metadata", id), err)
		}
	}

	return &entity.StoredDocument{
		ID:        id,
		FileID:    uuidPtr(fileID),
		VendorID:  uuidPtr(vendorID),
		SourceRef: sourceRef,
		Record:    rec,
		CreatedAt: created.Time,
	}, nil
}

func documentTypeNames() []string {
	names := make([]string, 0, 4)
	for _, t := range constants.AllDocumentTypes() {
		names = append(names, string(t))
	}
	return names
}
