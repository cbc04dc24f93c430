package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/grocery-inflation/internal/models"
)

// ExtractPrice picks the authoritative price of an observation: the
// discounted price when it is a valid non-negative number, otherwise the
// regular price under the same condition. A malformed value counts as
// missing. ok is false when neither field is usable.
func ExtractPrice(obs *models.PriceObservation) (price decimal.Decimal, ok bool) {
	if obs == nil {
		return decimal.Zero, false
	}
	if p, ok := ParsePrice(obs.PriceWithDiscount); ok {
		return p, true
	}
	if p, ok := ParsePrice(obs.PriceWithoutDiscount); ok {
		return p, true
	}
	return decimal.Zero, false
}

// ParsePrice converts a stored price. Missing, malformed and negative
// values all report ok=false.
func ParsePrice(raw *string) (decimal.Decimal, bool) {
	if raw == nil {
		return decimal.Zero, false
	}
	p, err := decimal.NewFromString(*raw)
	if err != nil || p.IsNegative() {
		return decimal.Zero, false
	}
	return p, true
}
