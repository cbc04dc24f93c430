package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// PriceObservation is the price of a product on one calendar day.
// Prices are kept as their stored text; a nil pointer means the value was
// never recorded. Use pricing.ExtractPrice to obtain a usable number.
type PriceObservation struct {
	ID                   int       `json:"price_id"`
	ProductID            int       `json:"product_id"`
	Date                 time.Time `json:"price_date"`
	PriceWithDiscount    *string   `json:"price_with_discount,omitempty"`
	PriceWithoutDiscount *string   `json:"price_without_discount,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// Day truncates t to its calendar date, expressed as midnight UTC
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// PriceText formats a decimal price with two fractional digits
func PriceText(d decimal.Decimal) *string {
	s := d.StringFixed(2)
	return &s
}
