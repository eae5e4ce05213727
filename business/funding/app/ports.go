// Package app contains application services and port definitions for the funding context.
package app

import (
	"context"

	"github.com/perpwatch/funding-radar/business/funding/domain"
)

// Connector defines the interface every exchange source implements.
type Connector interface {
	// Name returns the connector's registry name, e.g. "binance".
	Name() string

	// FetchFundingRates queries the venue's public market-data API and maps
	// the response to a snapshot. Failures are captured on the snapshot's
	// Err field, never returned or raised past this boundary.
	FetchFundingRates(ctx context.Context) domain.SourceSnapshot
}
