// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"github.com/perpwatch/funding-radar/business/arbitrage/domain"
	fundingDomain "github.com/perpwatch/funding-radar/business/funding/domain"
)

// Reporter defines the interface for presenting analysis results.
type Reporter interface {
	// ReportOpportunities renders a ranked list of opportunities.
	ReportOpportunities(opportunities []domain.Opportunity)

	// ReportMarket renders a market overview of the aggregated snapshot.
	ReportMarket(snapshot domain.MarketSummary)

	// ReportSources renders per-source fetch outcomes.
	ReportSources(snapshots []fundingDomain.SourceSnapshot)
}
