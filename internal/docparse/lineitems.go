package docparse

import (
	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

// LineItemConfidence is the fixed confidence of a reconstructed line item.
const LineItemConfidence = 0.7

// ReconstructLineItems builds at most one line item from the item, quantity and
// unit price fields. All three must be present and parse; otherwise the result is
// empty. Multi-line tables are not recognized.
func (x *FieldExtractor) ReconstructLineItems(text string) []entity.LineItem {
	items := []entity.LineItem{}

	desc, ok := x.Extract(text, catalog.FieldItem)
	if !ok {
		return items
	}
	qty := x.Int(text, catalog.FieldQuantity)
	if qty == nil {
		return items
	}
	price := x.Currency(text, catalog.FieldUnitPrice)
	if price == nil {
		return items
	}

	return append(items, entity.LineItem{
		ItemDescription:      desc,
		Quantity:             *qty,
		UnitPrice:            *price,
		LineTotal:            price.Mul(decimalFromInt(*qty)),
		ExtractionConfidence: LineItemConfidence,
	})
}
