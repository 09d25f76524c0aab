package entity

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docs-tracker/constants"
)

// DateLayout is the canonical calendar-date form used in JSON, exports and storage.
const DateLayout = "2006-01-02"

// LineItem is one reconstructed line of a document.
type LineItem struct {
	ItemDescription      string          `json:"item_description"`
	Quantity             int             `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	LineTotal            decimal.Decimal `json:"line_total"`
	ExtractionConfidence float64         `json:"extraction_confidence"`
}

// Details is the variant-specific payload of a Record. Exactly one of
// *PurchaseOrderDetails, *InvoiceDetails or *ReceiptDetails; nil for Unknown documents.
type Details interface {
	DocumentType() constants.DocumentType
	clone() Details
}

type PurchaseOrderDetails struct {
	PONumber    *string
	TotalAmount *decimal.Decimal
}

type InvoiceDetails struct {
	InvoiceNumber *string
	ReferencePO   *string
	Item          *string
	Quantity      *int
	UnitPrice     *decimal.Decimal
	TotalAmount   *decimal.Decimal
}

type ReceiptDetails struct {
	ReceiptID        *string
	ReferencePO      *string
	Item             *string
	QuantityReceived *int
	DateReceived     *time.Time
}

func (*PurchaseOrderDetails) DocumentType() constants.DocumentType { return constants.PurchaseOrder }
func (*InvoiceDetails) DocumentType() constants.DocumentType       { return constants.Invoice }
func (*ReceiptDetails) DocumentType() constants.DocumentType       { return constants.Receipt }

func (d *PurchaseOrderDetails) clone() Details {
	return &PurchaseOrderDetails{PONumber: clonePtr(d.PONumber), TotalAmount: clonePtr(d.TotalAmount)}
}

func (d *InvoiceDetails) clone() Details {
	return &InvoiceDetails{
		InvoiceNumber: clonePtr(d.InvoiceNumber),
		ReferencePO:   clonePtr(d.ReferencePO),
		Item:          clonePtr(d.Item),
		Quantity:      clonePtr(d.Quantity),
		UnitPrice:     clonePtr(d.UnitPrice),
		TotalAmount:   clonePtr(d.TotalAmount),
	}
}

func (d *ReceiptDetails) clone() Details {
	return &ReceiptDetails{
		ReceiptID:        clonePtr(d.ReceiptID),
		ReferencePO:      clonePtr(d.ReferencePO),
		Item:             clonePtr(d.Item),
		QuantityReceived: clonePtr(d.QuantityReceived),
		DateReceived:     clonePtr(d.DateReceived),
	}
}

// Record is the structured result of parsing one document.
//
// DocumentNumber always mirrors the variant identifier (PO number, invoice number,
// receipt id); write it through SetIdentifier only.
type Record struct {
	DocumentType         constants.DocumentType
	DocumentNumber       *string
	Vendor               *string
	Date                 *time.Time
	LineItems            []LineItem
	ExtractionConfidence float64
	ExtractionMethod     string
	RawText              string
	Metadata             map[string]any
	Details              Details
}

// NewRecord returns an empty record of type t with its own containers.
func NewRecord(t constants.DocumentType) *Record {
	r := &Record{
		DocumentType: t,
		LineItems:    []LineItem{},
		Metadata:     map[string]any{},
	}
	switch t {
	case constants.PurchaseOrder:
		r.Details = &PurchaseOrderDetails{}
	case constants.Invoice:
		r.Details = &InvoiceDetails{}
	case constants.Receipt:
		r.Details = &ReceiptDetails{}
	default:
		r.DocumentType = constants.Unknown
	}
	return r
}

func (r *Record) PurchaseOrder() (*PurchaseOrderDetails, bool) {
	d, ok := r.Details.(*PurchaseOrderDetails)
	return d, ok
}

func (r *Record) Invoice() (*InvoiceDetails, bool) {
	d, ok := r.Details.(*InvoiceDetails)
	return d, ok
}

func (r *Record) Receipt() (*ReceiptDetails, bool) {
	d, ok := r.Details.(*ReceiptDetails)
	return d, ok
}

// Identifier returns the variant identifier, nil for Unknown documents.
func (r *Record) Identifier() *string {
	switch d := r.Details.(type) {
	case *PurchaseOrderDetails:
		return d.PONumber
	case *InvoiceDetails:
		return d.InvoiceNumber
	case *ReceiptDetails:
		return d.ReceiptID
	}
	return nil
}

// SetIdentifier sets the variant identifier and mirrors it into DocumentNumber.
// No-op for Unknown documents, which carry no identifier.
func (r *Record) SetIdentifier(id *string) {
	switch d := r.Details.(type) {
	case *PurchaseOrderDetails:
		d.PONumber = clonePtr(id)
	case *InvoiceDetails:
		d.InvoiceNumber = clonePtr(id)
	case *ReceiptDetails:
		d.ReceiptID = clonePtr(id)
	default:
		return
	}
	r.DocumentNumber = clonePtr(id)
}

// TotalAmount returns the document total for the variants that carry one.
func (r *Record) TotalAmount() *decimal.Decimal {
	switch d := r.Details.(type) {
	case *PurchaseOrderDetails:
		return d.TotalAmount
	case *InvoiceDetails:
		return d.TotalAmount
	}
	return nil
}

func (r *Record) SetTotalAmount(v *decimal.Decimal) {
	switch d := r.Details.(type) {
	case *PurchaseOrderDetails:
		d.TotalAmount = v
	case *InvoiceDetails:
		d.TotalAmount = v
	}
}

// ReferencePO returns the referenced purchase order for invoices and receipts.
func (r *Record) ReferencePO() *string {
	switch d := r.Details.(type) {
	case *InvoiceDetails:
		return d.ReferencePO
	case *ReceiptDetails:
		return d.ReferencePO
	}
	return nil
}

// Clone returns a deep copy that shares nothing with r.
func (r *Record) Clone() *Record {
	out := &Record{
		DocumentType:         r.DocumentType,
		DocumentNumber:       clonePtr(r.DocumentNumber),
		Vendor:               clonePtr(r.Vendor),
		Date:                 clonePtr(r.Date),
		LineItems:            append([]LineItem{}, r.LineItems...),
		ExtractionConfidence: r.ExtractionConfidence,
		ExtractionMethod:     r.ExtractionMethod,
		RawText:              r.RawText,
		Metadata:             maps.Clone(r.Metadata),
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	if r.Details != nil {
		out.Details = r.Details.clone()
	}
	return out
}

// MarshalJSON flattens the variant payload next to the common fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"document_type":         r.DocumentType,
		"document_number":       r.DocumentNumber,
		"vendor":                r.Vendor,
		"date":                  FormatDate(r.Date),
		"line_items":            lineItemsJSON(r.LineItems),
		"extraction_confidence": r.ExtractionConfidence,
		"extraction_method":     r.ExtractionMethod,
		"raw_text":              r.RawText,
		"metadata":              r.Metadata,
	}
	switch d := r.Details.(type) {
	case *PurchaseOrderDetails:
		m["po_number"] = d.PONumber
		m["total_amount"] = FormatMoney(d.TotalAmount)
	case *InvoiceDetails:
		m["invoice_number"] = d.InvoiceNumber
		m["reference_po"] = d.ReferencePO
		m["item"] = d.Item
		m["quantity"] = d.Quantity
		m["unit_price"] = FormatMoney(d.UnitPrice)
		m["total_amount"] = FormatMoney(d.TotalAmount)
	case *ReceiptDetails:
		m["receipt_id"] = d.ReceiptID
		m["reference_po"] = d.ReferencePO
		m["item"] = d.Item
		m["quantity_received"] = d.QuantityReceived
		m["date_received"] = FormatDate(d.DateReceived)
	}
	return json.Marshal(m)
}

func lineItemsJSON(items []LineItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, li := range items {
		out = append(out, map[string]any{
			"item_description":      li.ItemDescription,
			"quantity":              li.Quantity,
			"unit_price":            li.UnitPrice.StringFixed(2),
			"line_total":            li.LineTotal.StringFixed(2),
			"extraction_confidence": li.ExtractionConfidence,
		})
	}
	return out
}

// FormatDate renders an optional date as YYYY-MM-DD, nil when absent.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// FormatMoney renders an optional amount with two decimals, nil when absent.
func FormatMoney(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
