package docparse

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

// Accepted document years; dates outside are treated as misreads.
const (
	MinDocumentYear = 2000
	MaxDocumentYear = 2030
)

// Issue is something the cleaner noticed. Issues never fail a parse.
type Issue struct {
	Field   string
	Index   int // line item index, -1 for record fields
	Message string
}

func (i Issue) String() string {
	if i.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %s", i.Field, i.Index, i.Message)
	}
	return i.Field + ": " + i.Message
}

// Cleaner normalizes a record in place. Cleaning an already clean record changes nothing.
type Cleaner struct {
	logger *slog.Logger
}

func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

func (c *Cleaner) Clean(r *entity.Record) []Issue {
	var issues []Issue
	flag := func(field string, index int, format string, args ...any) {
		iss := Issue{Field: field, Index: index, Message: fmt.Sprintf(format, args...)}
		issues = append(issues, iss)
		c.logger.Warn("validation issue", "document_type", r.DocumentType, "field", field, "index", index, "message", iss.Message)
	}

	if r.Vendor != nil {
		v := cleanVendor(*r.Vendor)
		if v == "" {
			r.Vendor = nil
		} else {
			r.Vendor = &v
		}
	}

	if id := r.Identifier(); id != nil {
		v := strings.ToUpper(strings.TrimSpace(*id))
		if v == "" {
			r.SetIdentifier(nil)
		} else {
			r.SetIdentifier(&v)
		}
	}

	if r.Date != nil {
		if y := r.Date.Year(); y < MinDocumentYear || y > MaxDocumentYear {
			flag("date", -1, "year %d outside %d-%d, discarded", y, MinDocumentYear, MaxDocumentYear)
			r.Date = nil
		}
	}

	if total := r.TotalAmount(); total != nil && total.LessThanOrEqual(decimal.Zero) {
		flag("total_amount", -1, "non-positive total %s discarded", total.String())
		r.SetTotalAmount(nil)
	}

	for i, li := range r.LineItems {
		if li.Quantity <= 0 {
			flag("line_items.quantity", i, "non-positive quantity %d", li.Quantity)
		}
		if li.UnitPrice.LessThanOrEqual(decimal.Zero) {
			flag("line_items.unit_price", i, "non-positive unit price %s", li.UnitPrice.String())
		}
	}
	return issues
}

// cleanVendor collapses internal whitespace and strips trailing punctuation and spaces.
func cleanVendor(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(".,;:", r)
	})
}
