package constants

import "strings"

// DocumentType is the classification of a business document. Stored as-is in the DB.
type DocumentType string

const (
	PurchaseOrder DocumentType = "purchase_order"
	Invoice       DocumentType = "invoice"
	Receipt       DocumentType = "receipt"
	Unknown       DocumentType = "unknown"
)

// ClassificationOrder is the order in which types are tried; the first match wins.
var ClassificationOrder = []DocumentType{PurchaseOrder, Invoice, Receipt}

var allDocumentTypes = []DocumentType{PurchaseOrder, Invoice, Receipt, Unknown}

// AllDocumentTypes returns every known type, Unknown last.
func AllDocumentTypes() []DocumentType {
	out := make([]DocumentType, len(allDocumentTypes))
	copy(out, allDocumentTypes)
	return out
}

func (t DocumentType) String() string { return string(t) }

// Label is the human-readable name used in exports.
func (t DocumentType) Label() string {
	switch t {
	case PurchaseOrder:
		return "Purchase Order"
	case Invoice:
		return "Invoice"
	case Receipt:
		return "Receipt"
	default:
		return "Unknown"
	}
}

// ParseDocumentType accepts the stored value or a loose spelling ("PO", "Purchase Order").
func ParseDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	synonyms := map[string]DocumentType{
		"po":      PurchaseOrder,
		"inv":     Invoice,
		"rcpt":    Receipt,
		"receipt": Receipt,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}
	for _, t := range allDocumentTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return Unknown, false
}
