package docparse

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
)

// FieldExtractor pulls single values out of text using the catalog's ordered patterns.
type FieldExtractor struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewFieldExtractor(c *catalog.Catalog, logger *slog.Logger) *FieldExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldExtractor{catalog: c, logger: logger}
}

// Extract returns the trimmed capture of the first pattern that matches anywhere in
// text. Patterns are tried in catalog order, so an earlier pattern wins even when a
// later one matches earlier in the text. The first matching pattern decides: if its
// captures are all blank the field is absent.
func (x *FieldExtractor) Extract(text string, field catalog.Field) (string, bool) {
	for i, re := range x.catalog.FieldPatterns(field) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, g := range m[1:] {
			if v := strings.TrimSpace(g); v != "" {
				x.logger.Debug("field matched", "field", field, "pattern_index", i)
				return v, true
			}
		}
		x.logger.Debug("field matched with blank value", "field", field, "pattern_index", i)
		return "", false
	}
	x.logger.Debug("field not found", "field", field)
	return "", false
}

// String is Extract as an optional value.
func (x *FieldExtractor) String(text string, field catalog.Field) *string {
	v, ok := x.Extract(text, field)
	if !ok {
		return nil
	}
	return &v
}

// Date extracts and parses a date field; unparseable values are logged and dropped.
func (x *FieldExtractor) Date(text string, field catalog.Field) *time.Time {
	raw, ok := x.Extract(text, field)
	if !ok {
		return nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		x.logger.Error("date parse failed", "field", field, "value", raw, "error", err)
		return nil
	}
	return &t
}

// Currency extracts and parses a money field; unparseable values are logged and dropped.
func (x *FieldExtractor) Currency(text string, field catalog.Field) *decimal.Decimal {
	raw, ok := x.Extract(text, field)
	if !ok {
		return nil
	}
	d, err := ParseCurrency(raw)
	if err != nil {
		x.logger.Error("currency parse failed", "field", field, "value", raw, "error", err)
		return nil
	}
	return &d
}

// Int extracts and parses an integer field; unparseable values are logged and dropped.
func (x *FieldExtractor) Int(text string, field catalog.Field) *int {
	raw, ok := x.Extract(text, field)
	if !ok {
		return nil
	}
	n, err := ParseInt(raw)
	if err != nil {
		x.logger.Error("integer parse failed", "field", field, "value", raw, "error", err)
		return nil
	}
	return &n
}
