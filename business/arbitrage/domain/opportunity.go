// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Leg is one side of a funding arbitrage position on a single exchange.
type Leg struct {
	Source        string
	Rate          decimal.Decimal
	RatePercent   decimal.Decimal
	Price         *decimal.Decimal
	Volume24h     *decimal.Decimal
	MaxOrderValue *decimal.Decimal
	NextFundingAt time.Time
}

// Opportunity is a scored, directional funding spread between two sources
// for the same instrument. Long is always the lower-rate side; the short
// side's funding payments flow to the long side.
type Opportunity struct {
	Symbol string

	Long  Leg
	Short Leg

	// FundingSpread is Short.RatePercent - Long.RatePercent, in percent
	// per funding interval.
	FundingSpread decimal.Decimal

	// PriceSpreadPercent is the relative mark price divergence between
	// the two sources. Zero when either side's price is unknown.
	PriceSpreadPercent decimal.Decimal

	// MinVolume24h is the smaller of the two sides' 24h quote volumes.
	MinVolume24h decimal.Decimal

	// TimeToFundingHours is the sooner of the two sides' next settlements.
	TimeToFundingHours float64

	QualityScore float64

	DetectedAt time.Time
}

// MaxPositionValue returns the largest position both legs can absorb, or
// nil when neither venue publishes an order limit.
func (o *Opportunity) MaxPositionValue() *decimal.Decimal {
	long, short := o.Long.MaxOrderValue, o.Short.MaxOrderValue
	switch {
	case long == nil:
		return short
	case short == nil:
		return long
	case long.LessThan(*short):
		return long
	default:
		return short
	}
}
