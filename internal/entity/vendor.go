package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor is a counterparty resolved from the vendor names found on documents.
type Vendor struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	NormalizedName string          `json:"normalized_name"`
	DocumentCount  int             `json:"document_count"`
	PurchaseOrders int             `json:"purchase_orders"`
	Invoices       int             `json:"invoices"`
	Receipts       int             `json:"receipts"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	LastDocumentAt *time.Time      `json:"last_document_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StoredDocument is a Record as persisted, with its assigned identity.
type StoredDocument struct {
	ID        uuid.UUID  `json:"id"`
	FileID    *uuid.UUID `json:"file_id,omitempty"`
	VendorID  *uuid.UUID `json:"vendor_id,omitempty"`
	SourceRef string     `json:"source_ref"`
	Record    *Record    `json:"record"`
	CreatedAt time.Time  `json:"created_at"`
}
