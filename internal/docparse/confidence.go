package docparse

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docs-tracker/internal/entity"
)

// Signal weights. They are summed in this order.
const (
	WeightDocumentNumber = 0.3
	WeightVendor         = 0.2
	WeightDate           = 0.1
	WeightTotal          = 0.2
	WeightLineItems      = 0.2
	WeightIdentifier     = 0.1

	// BonusThreshold signals or more add BonusWeight.
	BonusThreshold = 5
	BonusWeight    = 0.1
)

// Score is the extraction confidence of a record in [0, 1]. A zero total does not
// count as present.
func Score(r *entity.Record) float64 {
	total := r.TotalAmount()
	signals := []struct {
		weight  float64
		present bool
	}{
		{WeightDocumentNumber, nonEmpty(r.DocumentNumber)},
		{WeightVendor, nonEmpty(r.Vendor)},
		{WeightDate, r.Date != nil},
		{WeightTotal, total != nil && !total.IsZero()},
		{WeightLineItems, len(r.LineItems) > 0},
		{WeightIdentifier, nonEmpty(r.Identifier())},
	}

	score, fired := 0.0, 0
	for _, s := range signals {
		if s.present {
			score += s.weight
			fired++
		}
	}
	if fired >= BonusThreshold {
		score += BonusWeight
	}
	return math.Min(math.Max(score, 0), 1)
}

func nonEmpty(s *string) bool { return s != nil && *s != "" }

func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
