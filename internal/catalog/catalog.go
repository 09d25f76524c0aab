package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docs-tracker/constants"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// ErrInvalidCatalog is returned when a catalog file fails schema validation or compilation.
var ErrInvalidCatalog = errors.New("invalid pattern catalog")

// Field names a value the extractor can pull out of document text.
type Field string

const (
	FieldPONumber         Field = "po_number"
	FieldInvoiceNumber    Field = "invoice_number"
	FieldReceiptID        Field = "receipt_id"
	FieldVendor           Field = "vendor"
	FieldDate             Field = "date"
	FieldDateReceived     Field = "date_received"
	FieldReferencePO      Field = "reference_po"
	FieldTotal            Field = "total"
	FieldItem             Field = "item"
	FieldQuantity         Field = "quantity"
	FieldQuantityReceived Field = "quantity_received"
	FieldUnitPrice        Field = "unit_price"
)

// AllFields lists every field a catalog must define.
var AllFields = []Field{
	FieldPONumber, FieldInvoiceNumber, FieldReceiptID, FieldVendor, FieldDate, FieldDateReceived,
	FieldReferencePO, FieldTotal, FieldItem, FieldQuantity, FieldQuantityReceived, FieldUnitPrice,
}

// TypeRule is the ordered pattern list that identifies one document type.
type TypeRule struct {
	Type     constants.DocumentType
	Patterns []*regexp.Regexp
}

// Catalog is a compiled, read-only pattern catalog. Safe for concurrent use.
type Catalog struct {
	version string
	types   []TypeRule
	fields  map[Field][]*regexp.Regexp
}

type catalogFile struct {
	Version       string `yaml:"version"`
	DocumentTypes []struct {
		Type     string   `yaml:"type"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"document_types"`
	Fields map[string][]string `yaml:"fields"`
}

// Load validates a YAML catalog against the catalog schema and compiles it.
// Type patterns are case-insensitive; field patterns are case-insensitive and multi-line.
func Load(data []byte) (*Catalog, error) {
	if err := validateAgainstSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidCatalog, err)
	}

	c := &Catalog{
		version: f.Version,
		fields:  make(map[Field][]*regexp.Regexp, len(f.Fields)),
	}

	seen := map[constants.DocumentType]struct{}{}
	for _, dt := range f.DocumentTypes {
		t, ok := constants.ParseDocumentType(dt.Type)
		if !ok || t == constants.Unknown {
			return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidCatalog, dt.Type)
		}
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("%w: duplicate document type %q", ErrInvalidCatalog, dt.Type)
		}
		seen[t] = struct{}{}

		rule := TypeRule{Type: t}
		for _, p := range dt.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("%w: %s pattern %q: %w", ErrInvalidCatalog, t, p, err)
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		c.types = append(c.types, rule)
	}

	known := make(map[Field]struct{}, len(AllFields))
	for _, fl := range AllFields {
		known[fl] = struct{}{}
	}
	for name, patterns := range f.Fields {
		fl := Field(name)
		if _, ok := known[fl]; !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidCatalog, name)
		}
		for _, p := range patterns {
			re, err := regexp.Compile(`(?im)` + p)
			if err != nil {
				return nil, fmt.Errorf("%w: field %s pattern %q: %w", ErrInvalidCatalog, name, p, err)
			}
			c.fields[fl] = append(c.fields[fl], re)
		}
	}
	return c, nil
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Load(defaultPatterns)
})

// Default returns the catalog shipped with the binary. It is compiled once.
func Default() (*Catalog, error) {
	return loadDefault()
}

// MustDefault is Default for callers that treat a broken embedded catalog as a programming error.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Version() string { return c.version }

// TypeRules returns the document type rules in classification order.
func (c *Catalog) TypeRules() []TypeRule {
	return c.types
}

// FieldPatterns returns the ordered patterns for a field, nil if the field is not defined.
func (c *Catalog) FieldPatterns(f Field) []*regexp.Regexp {
	return c.fields[f]
}
