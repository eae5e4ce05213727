package domain

import (
	"sort"
	"time"

	fundingDomain "github.com/perpwatch/funding-radar/business/funding/domain"
)

// MarketSummary is a cross-source overview of one aggregated snapshot:
// fetch health plus the most extreme funding rates observed.
type MarketSummary struct {
	FetchedAt      time.Time
	Age            time.Duration
	TotalRecords   int
	HealthySources []string
	FailedSources  []string

	// TopPositive and TopNegative hold the most extreme rates across all
	// sources, ordered most extreme first.
	TopPositive []fundingDomain.FundingRateRecord
	TopNegative []fundingDomain.FundingRateRecord
}

// NewMarketSummary builds a summary over the snapshot, keeping at most
// topN records per extreme.
func NewMarketSummary(snapshot fundingDomain.AggregatedSnapshot, topN int) MarketSummary {
	summary := MarketSummary{
		FetchedAt:    snapshot.FetchedAt,
		Age:          snapshot.Age(time.Now()),
		TotalRecords: snapshot.TotalRecords(),
	}

	var all []fundingDomain.FundingRateRecord
	for _, snap := range snapshot.Snapshots {
		if snap.OK() {
			summary.HealthySources = append(summary.HealthySources, snap.Source)
			all = append(all, snap.Records...)
		} else {
			summary.FailedSources = append(summary.FailedSources, snap.Source)
		}
	}

	if topN <= 0 || len(all) == 0 {
		return summary
	}

	byRateDesc := make([]fundingDomain.FundingRateRecord, len(all))
	copy(byRateDesc, all)
	sort.SliceStable(byRateDesc, func(i, j int) bool {
		return byRateDesc[i].RatePercent.GreaterThan(byRateDesc[j].RatePercent)
	})

	n := topN
	if n > len(byRateDesc) {
		n = len(byRateDesc)
	}
	summary.TopPositive = byRateDesc[:n]

	summary.TopNegative = make([]fundingDomain.FundingRateRecord, n)
	for i := 0; i < n; i++ {
		summary.TopNegative[i] = byRateDesc[len(byRateDesc)-1-i]
	}

	return summary
}
