// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perpwatch/funding-radar/business/arbitrage/domain"
	fundingDomain "github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/logger"
)

// AnalyzerConfig holds the thresholds an opportunity must clear.
type AnalyzerConfig struct {
	// MinFundingSpread is the smallest surfaced spread, in percent per
	// funding interval.
	MinFundingSpread decimal.Decimal
	// MaxPriceSpread is the largest tolerated mark price divergence, in
	// percent. Wider divergence threatens entering both legs at once.
	MaxPriceSpread decimal.Decimal
	// MinVolume24h is the minimum 24h quote volume both legs must carry.
	MinVolume24h decimal.Decimal
	// MinSources is how many distinct sources must list an instrument
	// before it is considered at all.
	MinSources int
	// MaxTimeToFundingHours drops pairs whose next settlement is too far
	// out to be worth holding for.
	MaxTimeToFundingHours float64
	// IncludeWithoutVolume disables the volume filter entirely, so pairs
	// with thin or unpublished volume still surface.
	IncludeWithoutVolume bool
}

// DefaultAnalyzerConfig returns the standard thresholds.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinFundingSpread:      decimal.NewFromFloat(0.01),
		MaxPriceSpread:        decimal.NewFromFloat(1.0),
		MinVolume24h:          decimal.NewFromInt(100_000),
		MinSources:            2,
		MaxTimeToFundingHours: 24,
	}
}

// Analyzer derives ranked funding arbitrage opportunities from aggregated
// snapshots. It is pure computation: no I/O, no retries, and it never
// mutates its input.
type Analyzer struct {
	cfg AnalyzerConfig
	log logger.LoggerInterface
}

// NewAnalyzer creates an Analyzer with the given thresholds.
func NewAnalyzer(cfg AnalyzerConfig, log logger.LoggerInterface) *Analyzer {
	return &Analyzer{cfg: cfg, log: log}
}

// Analyze evaluates every source pair per instrument across the successful
// snapshots and returns opportunities best first. Failed snapshots are
// skipped, never raised. Output ordering is deterministic: score descending
// with insertion order breaking ties.
func (a *Analyzer) Analyze(snapshots []fundingDomain.SourceSnapshot) []domain.Opportunity {
	now := time.Now().UTC()
	symbols, groups := groupByBaseAsset(snapshots)

	var opportunities []domain.Opportunity
	for _, symbol := range symbols {
		group := group{symbol: symbol, records: groups[symbol]}
		if group.distinctSources() < a.cfg.MinSources {
			continue
		}

		for i := 0; i < len(group.records); i++ {
			for j := i + 1; j < len(group.records); j++ {
				if group.records[i].Source == group.records[j].Source {
					continue
				}
				if opp, ok := a.evaluatePair(symbol, group.records[i], group.records[j], now); ok {
					opportunities = append(opportunities, opp)
				}
			}
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].QualityScore > opportunities[j].QualityScore
	})

	return opportunities
}

// Top returns at most limit opportunities from an already ranked list. A
// non-positive limit means no truncation.
func Top(opportunities []domain.Opportunity, limit int) []domain.Opportunity {
	if limit <= 0 || limit >= len(opportunities) {
		return opportunities
	}
	return opportunities[:limit]
}

// FindOpportunities is the one-call form: analyze and truncate in one step.
func (a *Analyzer) FindOpportunities(snapshots []fundingDomain.SourceSnapshot, limit int) []domain.Opportunity {
	return Top(a.Analyze(snapshots), limit)
}

// MarketStats summarizes one round of snapshots.
type MarketStats struct {
	TotalRates         int
	SuccessfulSources  int
	UniqueSymbols      int
	MultiSourceSymbols int
}

// Stats counts rates, healthy sources and symbol coverage across snapshots.
// Only symbols listed on at least two sources can ever produce a pair.
func Stats(snapshots []fundingDomain.SourceSnapshot) MarketStats {
	var stats MarketStats
	for _, snap := range snapshots {
		if !snap.OK() {
			continue
		}
		stats.SuccessfulSources++
		stats.TotalRates += len(snap.Records)
	}

	symbols, groups := groupByBaseAsset(snapshots)
	stats.UniqueSymbols = len(symbols)
	for _, records := range groups {
		if (group{records: records}).distinctSources() >= 2 {
			stats.MultiSourceSymbols++
		}
	}
	return stats
}

// evaluatePair scores one unordered pair of records for the same
// instrument. The lower-rate side is the long leg; the assignment is made
// per pair, per instant, never by venue convention.
func (a *Analyzer) evaluatePair(symbol string, first, second fundingDomain.FundingRateRecord, now time.Time) (domain.Opportunity, bool) {
	long, short := first, second
	if long.RatePercent.GreaterThan(short.RatePercent) {
		long, short = short, long
	}

	fundingSpread := short.RatePercent.Sub(long.RatePercent)
	if fundingSpread.LessThan(a.cfg.MinFundingSpread) {
		return domain.Opportunity{}, false
	}

	priceSpread := priceSpreadPercent(long.MarkPrice, short.MarkPrice)
	if priceSpread.GreaterThan(a.cfg.MaxPriceSpread) {
		return domain.Opportunity{}, false
	}

	minVolume := minVolume24h(long.Volume24h, short.Volume24h, a.cfg.IncludeWithoutVolume)
	if !a.cfg.IncludeWithoutVolume && minVolume.LessThan(a.cfg.MinVolume24h) {
		return domain.Opportunity{}, false
	}

	ttf := timeToFunding(now, long.NextFundingAt, short.NextFundingAt)
	if ttf > a.cfg.MaxTimeToFundingHours {
		return domain.Opportunity{}, false
	}

	return domain.Opportunity{
		Symbol:             symbol,
		Long:               leg(long),
		Short:              leg(short),
		FundingSpread:      fundingSpread,
		PriceSpreadPercent: priceSpread,
		MinVolume24h:       minVolume,
		TimeToFundingHours: ttf,
		QualityScore:       qualityScore(fundingSpread, minVolume, priceSpread, ttf),
		DetectedAt:         now,
	}, true
}

// qualityScore combines spread magnitude, liquidity, price divergence and
// settlement proximity into one ranking number. Liquidity reward is
// logarithmic and capped at 50; price divergence penalty is capped at 30;
// settlements under 8 hours away earn an urgency bonus.
func qualityScore(fundingSpread, minVolume, priceSpread decimal.Decimal, ttf float64) float64 {
	spread := fundingSpread.InexactFloat64()
	volume := minVolume.InexactFloat64()
	divergence := priceSpread.InexactFloat64()

	score := 100*spread +
		math.Min(50, 5*math.Log10(volume+1)) -
		math.Min(30, 10*divergence)
	if ttf < 8 {
		score += (8 - ttf) * 2.5
	}
	return score
}

// priceSpreadPercent is the relative divergence of the two mark prices. An
// unknown price on either side yields zero: unpenalized, but unrewarded.
func priceSpreadPercent(longPrice, shortPrice *decimal.Decimal) decimal.Decimal {
	if longPrice == nil || shortPrice == nil {
		return decimal.Zero
	}
	avg := longPrice.Add(*shortPrice).Div(decimal.NewFromInt(2))
	if avg.IsZero() {
		return decimal.Zero
	}
	return longPrice.Sub(*shortPrice).Abs().Div(avg).Mul(decimal.NewFromInt(100))
}

// minVolume24h is the smaller of the two sides' volumes, kept on the
// opportunity for display. A missing volume counts as zero unless
// includeWithoutVolume, in which case the known side's value stands in.
func minVolume24h(long, short *decimal.Decimal, includeWithoutVolume bool) decimal.Decimal {
	if includeWithoutVolume {
		switch {
		case long == nil && short == nil:
			return decimal.Zero
		case long == nil:
			return *short
		case short == nil:
			return *long
		}
	}
	longVol, shortVol := decimal.Zero, decimal.Zero
	if long != nil {
		longVol = *long
	}
	if short != nil {
		shortVol = *short
	}
	if longVol.LessThan(shortVol) {
		return longVol
	}
	return shortVol
}

// timeToFunding is the sooner of the two sides' next settlements in hours.
// When both are in the past or unknown it falls back to a full standard
// interval of 8 hours.
func timeToFunding(now time.Time, long, short time.Time) float64 {
	best := math.MaxFloat64
	for _, t := range []time.Time{long, short} {
		if t.IsZero() || !t.After(now) {
			continue
		}
		if h := fundingDomain.TimeToFundingHours(now, t); h > 0 && h < best {
			best = h
		}
	}
	if best == math.MaxFloat64 {
		return 8
	}
	return best
}

func leg(r fundingDomain.FundingRateRecord) domain.Leg {
	return domain.Leg{
		Source:        r.Source,
		Rate:          r.Rate,
		RatePercent:   r.RatePercent,
		Price:         r.MarkPrice,
		Volume24h:     r.Volume24h,
		MaxOrderValue: r.MaxOrderValue,
		NextFundingAt: r.NextFundingAt,
	}
}

type group struct {
	symbol  string
	records []fundingDomain.FundingRateRecord
}

func (g group) distinctSources() int {
	seen := make(map[string]bool, len(g.records))
	for _, r := range g.records {
		seen[r.Source] = true
	}
	return len(seen)
}

// groupByBaseAsset flattens the successful snapshots and buckets records by
// normalized base asset. Key order follows first appearance so the caller's
// iteration stays deterministic.
func groupByBaseAsset(snapshots []fundingDomain.SourceSnapshot) ([]string, map[string][]fundingDomain.FundingRateRecord) {
	var symbols []string
	groups := make(map[string][]fundingDomain.FundingRateRecord)

	for _, snap := range snapshots {
		if !snap.OK() {
			continue
		}
		for _, record := range snap.Records {
			base := record.BaseAsset()
			if base == "" {
				continue
			}
			if _, seen := groups[base]; !seen {
				symbols = append(symbols, base)
			}
			groups[base] = append(groups[base], record)
		}
	}
	return symbols, groups
}
