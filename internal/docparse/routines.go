package docparse

import (
	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

func (p *Parser) extractPurchaseOrder(text string) *entity.Record {
	rec := entity.NewRecord(constants.PurchaseOrder)
	rec.SetIdentifier(p.fields.String(text, catalog.FieldPONumber))
	rec.Vendor = p.fields.String(text, catalog.FieldVendor)
	rec.Date = p.fields.Date(text, catalog.FieldDate)
	rec.SetTotalAmount(p.fields.Currency(text, catalog.FieldTotal))
	rec.LineItems = p.fields.ReconstructLineItems(text)
	rec.ExtractionConfidence = Score(rec)
	return rec
}

func (p *Parser) extractInvoice(text string) *entity.Record {
	rec := entity.NewRecord(constants.Invoice)
	inv, _ := rec.Invoice()
	rec.SetIdentifier(p.fields.String(text, catalog.FieldInvoiceNumber))
	inv.ReferencePO = p.fields.String(text, catalog.FieldReferencePO)
	rec.Vendor = p.fields.String(text, catalog.FieldVendor)
	rec.Date = p.fields.Date(text, catalog.FieldDate)
	rec.SetTotalAmount(p.fields.Currency(text, catalog.FieldTotal))
	inv.Item = p.fields.String(text, catalog.FieldItem)
	inv.Quantity = p.fields.Int(text, catalog.FieldQuantity)
	inv.UnitPrice = p.fields.Currency(text, catalog.FieldUnitPrice)
	rec.LineItems = p.fields.ReconstructLineItems(text)
	rec.ExtractionConfidence = Score(rec)
	return rec
}

// Receipts carry no line items; the received date doubles as the document date.
func (p *Parser) extractReceipt(text string) *entity.Record {
	rec := entity.NewRecord(constants.Receipt)
	rcpt, _ := rec.Receipt()
	rec.SetIdentifier(p.fields.String(text, catalog.FieldReceiptID))
	rec.Vendor = p.fields.String(text, catalog.FieldVendor)
	rcpt.ReferencePO = p.fields.String(text, catalog.FieldReferencePO)
	rcpt.Item = p.fields.String(text, catalog.FieldItem)
	rcpt.QuantityReceived = p.fields.Int(text, catalog.FieldQuantityReceived)
	rcpt.DateReceived = p.fields.Date(text, catalog.FieldDateReceived)
	if rcpt.DateReceived != nil {
		d := *rcpt.DateReceived
		rec.Date = &d
	}
	rec.ExtractionConfidence = Score(rec)
	return rec
}

func (p *Parser) extractGeneric(text string) *entity.Record {
	rec := entity.NewRecord(constants.Unknown)
	rec.Vendor = p.fields.String(text, catalog.FieldVendor)
	rec.Date = p.fields.Date(text, catalog.FieldDate)
	rec.LineItems = p.fields.ReconstructLineItems(text)
	rec.ExtractionConfidence = Score(rec)
	return rec
}
