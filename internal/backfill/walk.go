package backfill

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/grocery-inflation/internal/models"
	"github.com/trogers1052/grocery-inflation/internal/pricing"
)

// Defaults for the synthetic history
const (
	DefaultStepDays     = 7
	DefaultHorizonDays  = 365
	DefaultNoisePercent = 5
)

// Fallback prices for anchors that lack a usable value. They are not
// derived from any real observation.
var (
	FallbackDiscountPrice = decimal.RequireFromString("100.00")
	FallbackFullPrice     = decimal.RequireFromString("120.00")
)

// State is the position of the backward walk
type State struct {
	Date     time.Time
	Discount decimal.Decimal
	Full     decimal.Decimal
}

// Walk is the shape of one backward step
type Walk struct {
	StepDays int
	// Noise is the maximum relative change per step, e.g. 0.05 for ±5%
	Noise decimal.Decimal
}

// NewWalk builds a Walk from a step in days and a noise bound in percent
func NewWalk(stepDays, noisePercent int) Walk {
	return Walk{
		StepDays: stepDays,
		Noise:    decimal.NewFromInt(int64(noisePercent)).Div(decimal.NewFromInt(100)),
	}
}

// DefaultWalk steps back one week with up to ±5% noise
func DefaultWalk() Walk {
	return NewWalk(DefaultStepDays, DefaultNoisePercent)
}

// Factor maps a uniform draw in [0, 1) onto [1-Noise, 1+Noise)
func (w Walk) Factor(draw float64) decimal.Decimal {
	low := decimal.NewFromInt(1).Sub(w.Noise)
	span := w.Noise.Add(w.Noise)
	return low.Add(span.Mul(decimal.NewFromFloat(draw)))
}

// Next computes the state one step further into the past. The same factor
// scales both prices so their discount ratio survives the walk. The date
// never goes below horizon.
func (w Walk) Next(s State, draw float64, horizon time.Time) State {
	f := w.Factor(draw)

	date := s.Date.AddDate(0, 0, -w.StepDays)
	if date.Before(horizon) {
		date = horizon
	}

	return State{
		Date:     date,
		Discount: RoundPrice(s.Discount.Mul(f)),
		Full:     RoundPrice(s.Full.Mul(f)),
	}
}

// RoundPrice rounds to cents, halves going up. Prices are non-negative, so
// decimal's half-away-from-zero rounding is half-up here.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// AnchorState starts a walk from a real observation
func AnchorState(anchor *models.PriceObservation) State {
	discount, ok := pricing.ParsePrice(anchor.PriceWithDiscount)
	if !ok {
		discount = FallbackDiscountPrice
	}
	full, ok := pricing.ParsePrice(anchor.PriceWithoutDiscount)
	if !ok {
		full = FallbackFullPrice
	}
	return State{
		Date:     models.Day(anchor.Date),
		Discount: discount,
		Full:     full,
	}
}
