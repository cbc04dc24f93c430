package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Aggregator combines per-product changes into one percentage.
// It is only called with a non-empty slice.
type Aggregator interface {
	Name() string
	Aggregate(changes []Change) decimal.Decimal
}

// MeanAggregator is the unweighted arithmetic mean of the per-product
// percentages. Every product counts the same regardless of its price.
type MeanAggregator struct{}

func (MeanAggregator) Name() string { return "mean" }

func (MeanAggregator) Aggregate(changes []Change) decimal.Decimal {
	sum := decimal.Zero
	for _, ch := range changes {
		sum = sum.Add(ch.Percent)
	}
	return sum.Div(decimal.NewFromInt(int64(len(changes))))
}

// StartPriceWeightedAggregator weights each product by its start price,
// which equals the change in the total cost of a basket holding one unit of
// every product.
type StartPriceWeightedAggregator struct{}

func (StartPriceWeightedAggregator) Name() string { return "start_price_weighted" }

func (StartPriceWeightedAggregator) Aggregate(changes []Change) decimal.Decimal {
	weighted := decimal.Zero
	weights := decimal.Zero
	for _, ch := range changes {
		weighted = weighted.Add(ch.Percent.Mul(ch.StartPrice))
		weights = weights.Add(ch.StartPrice)
	}
	// start prices are never zero here, Pairwise rejects those
	return weighted.Div(weights)
}

// AggregatorByName looks up an aggregation strategy by its configured name
func AggregatorByName(name string) (Aggregator, error) {
	switch name {
	case "", MeanAggregator{}.Name():
		return MeanAggregator{}, nil
	case StartPriceWeightedAggregator{}.Name():
		return StartPriceWeightedAggregator{}, nil
	default:
		return nil, fmt.Errorf("unknown inflation aggregator: %s", name)
	}
}
