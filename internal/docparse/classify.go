package docparse

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docs-tracker/constants"
	"github.com/joseph-ayodele/docs-tracker/internal/catalog"
)

// Classifier assigns a document type from the catalog's type patterns.
type Classifier struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewClassifier(c *catalog.Catalog, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{catalog: c, logger: logger}
}

// Classify tries types in catalog order against the upper-cased text and returns the
// first type with any matching pattern, or Unknown.
func (c *Classifier) Classify(text string) constants.DocumentType {
	upper := strings.ToUpper(text)
	for _, rule := range c.catalog.TypeRules() {
		for i, re := range rule.Patterns {
			if re.MatchString(upper) {
				c.logger.Debug("document classified", "type", rule.Type, "pattern_index", i)
				return rule.Type
			}
		}
	}
	c.logger.Debug("document type unknown")
	return constants.Unknown
}
