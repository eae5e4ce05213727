// Package domain contains the core domain types for the funding context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Common funding intervals observed across venues, in hours.
const (
	IntervalHourly      = 1
	IntervalFourHourly  = 4
	IntervalEightHourly = 8
)

var hundred = decimal.NewFromInt(100)

// FundingRateRecord is one instrument on one source at one point in time.
// Optional fields are pointers; nil means the venue does not publish the
// value, never zero.
type FundingRateRecord struct {
	// Symbol is the unified instrument identifier, e.g. "BTC/USDT:USDT".
	Symbol string
	// Source is the connector name that produced this record.
	Source string

	// Rate is the funding rate as a decimal fraction per interval
	// (0.0001 = 0.01%). RatePercent is Rate*100, kept separately so
	// display never re-derives it.
	Rate        decimal.Decimal
	RatePercent decimal.Decimal

	// IntervalHours is the funding payment cadence. Always > 0.
	IntervalHours int
	// NextFundingAt is the next funding settlement. Estimated from the
	// canonical schedule when the venue does not publish it.
	NextFundingAt time.Time

	MarkPrice     *decimal.Decimal
	IndexPrice    *decimal.Decimal
	Volume24h     *decimal.Decimal
	OpenInterest  *decimal.Decimal
	MaxOrderValue *decimal.Decimal
	MaxLeverage   *int

	FetchedAt time.Time
}

// NewRecord creates a record with Rate and RatePercent kept consistent.
func NewRecord(symbol, source string, rate decimal.Decimal, intervalHours int, nextFundingAt time.Time) FundingRateRecord {
	return FundingRateRecord{
		Symbol:        symbol,
		Source:        source,
		Rate:          rate,
		RatePercent:   rate.Mul(hundred),
		IntervalHours: intervalHours,
		NextFundingAt: nextFundingAt,
		FetchedAt:     time.Now().UTC(),
	}
}

// IntervalsPerDay returns how many funding payments happen per day.
func (r FundingRateRecord) IntervalsPerDay() int {
	if r.IntervalHours <= 0 {
		return 24 / IntervalEightHourly
	}
	return 24 / r.IntervalHours
}

// DailyRatePercent returns the rate scaled to one day of intervals.
func (r FundingRateRecord) DailyRatePercent() decimal.Decimal {
	return r.RatePercent.Mul(decimal.NewFromInt(int64(r.IntervalsPerDay())))
}

// AnnualizedRatePercent returns the rate scaled to a 365-day year, used to
// compare venues with different funding cadences.
func (r FundingRateRecord) AnnualizedRatePercent() decimal.Decimal {
	return r.DailyRatePercent().Mul(decimal.NewFromInt(365))
}

// BaseAsset returns the normalized base asset for cross-venue matching.
func (r FundingRateRecord) BaseAsset() string {
	return NormalizeSymbol(r.Symbol)
}

// DecimalPtr is a convenience helper for building optional fields.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// IntPtr is a convenience helper for building optional fields.
func IntPtr(i int) *int {
	return &i
}
