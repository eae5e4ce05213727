package app

import (
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	fundingDomain "github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// rec builds a record with price and volume set, the common case in these
// tests. rate is the decimal rate, not percent.
func rec(symbol, source, rate, price, volume string) fundingDomain.FundingRateRecord {
	r := fundingDomain.NewRecord(
		symbol, source,
		decimal.RequireFromString(rate),
		fundingDomain.IntervalEightHourly,
		time.Now().UTC().Add(4*time.Hour))
	r.MarkPrice = fundingDomain.DecimalPtr(decimal.RequireFromString(price))
	r.Volume24h = fundingDomain.DecimalPtr(decimal.RequireFromString(volume))
	return r
}

func okSnap(source string, records ...fundingDomain.FundingRateRecord) fundingDomain.SourceSnapshot {
	return fundingDomain.SourceSnapshot{
		Source:    source,
		Records:   records,
		FetchedAt: time.Now().UTC(),
	}
}

func failedSnap(source string) fundingDomain.SourceSnapshot {
	return fundingDomain.SourceSnapshot{
		Source:    source,
		FetchedAt: time.Now().UTC(),
		Err:       apperror.New(apperror.CodeSourceError, apperror.WithSource(source)),
	}
}

func TestAnalyzeBasicSpread(t *testing.T) {
	// Two sources, BTC at -0.01% and +0.03%, equal price, $1M volume.
	snapshots := []fundingDomain.SourceSnapshot{
		okSnap("binance", rec("BTC/USDT:USDT", "binance", "-0.0001", "50000", "1000000")),
		okSnap("bybit", rec("BTC/USDT:USDT", "bybit", "0.0003", "50000", "1000000")),
	}

	analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
	opportunities := analyzer.Analyze(snapshots)

	if len(opportunities) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opportunities))
	}
	opp := opportunities[0]
	if opp.Symbol != "BTC" {
		t.Errorf("symbol = %q, want BTC", opp.Symbol)
	}
	if opp.Long.Source != "binance" {
		t.Errorf("long side = %q, want binance (the lower rate)", opp.Long.Source)
	}
	if opp.Short.Source != "bybit" {
		t.Errorf("short side = %q, want bybit (the higher rate)", opp.Short.Source)
	}
	if !opp.FundingSpread.Equal(decimal.RequireFromString("0.04")) {
		t.Errorf("funding spread = %s, want 0.04", opp.FundingSpread)
	}
	if !opp.PriceSpreadPercent.IsZero() {
		t.Errorf("price spread = %s, want 0 for equal prices", opp.PriceSpreadPercent)
	}
}

func TestAnalyzeSingleSourceExcluded(t *testing.T) {
	snapshots := []fundingDomain.SourceSnapshot{
		okSnap("binance",
			rec("BTC/USDT:USDT", "binance", "0.0001", "50000", "1000000"),
			rec("ETH/USDT:USDT", "binance", "-0.0005", "3000", "1000000")),
	}

	analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
	if got := analyzer.Analyze(snapshots); len(got) != 0 {
		t.Fatalf("expected no opportunities for single-source symbols, got %d", len(got))
	}
}

func TestAnalyzeFailedSnapshotsSkipped(t *testing.T) {
	snapshots := []fundingDomain.SourceSnapshot{
		okSnap("binance", rec("BTC/USDT:USDT", "binance", "-0.0001", "50000", "1000000")),
		failedSnap("bybit"),
		okSnap("okx", rec("BTC/USDT:USDT", "okx", "0.0003", "50000", "1000000")),
	}

	analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
	opportunities := analyzer.Analyze(snapshots)

	if len(opportunities) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opportunities))
	}
	if opportunities[0].Short.Source != "okx" {
		t.Errorf("short side = %q, want okx", opportunities[0].Short.Source)
	}
}

func TestAnalyzePriceSpreadFilter(t *testing.T) {
	// ~2% price divergence with the default 1% ceiling.
	snapshots := []fundingDomain.SourceSnapshot{
		okSnap("binance", rec("BTC/USDT:USDT", "binance", "-0.001", "50000", "1000000")),
		okSnap("bybit", rec("BTC/USDT:USDT", "bybit", "0.003", "51010", "1000000")),
	}

	analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
	if got := analyzer.Analyze(snapshots); len(got) != 0 {
		t.Fatalf("expected wide price spread to be filtered, got %d opportunities", len(got))
	}
}

func TestAnalyzeVolumeFilter(t *testing.T) {
	thin := rec("BTC/USDT:USDT", "bybit", "0.0003", "50000", "500")

	noVolume := fundingDomain.NewRecord(
		"BTC/USDT:USDT", "okx",
		decimal.RequireFromString("0.0003"),
		fundingDomain.IntervalEightHourly,
		time.Now().UTC().Add(4*time.Hour))
	price := decimal.RequireFromString("50000")
	noVolume.MarkPrice = &price

	base := okSnap("binance", rec("BTC/USDT:USDT", "binance", "-0.0001", "50000", "1000000"))

	t.Run("below minimum volume", func(t *testing.T) {
		analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
		got := analyzer.Analyze([]fundingDomain.SourceSnapshot{base, okSnap("bybit", thin)})
		if len(got) != 0 {
			t.Fatalf("expected thin market to be filtered, got %d", len(got))
		}
	})

	t.Run("missing volume filtered by default", func(t *testing.T) {
		analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
		got := analyzer.Analyze([]fundingDomain.SourceSnapshot{base, okSnap("okx", noVolume)})
		if len(got) != 0 {
			t.Fatalf("expected missing volume to count as zero, got %d", len(got))
		}
	})

	t.Run("missing volume kept when configured", func(t *testing.T) {
		cfg := DefaultAnalyzerConfig()
		cfg.IncludeWithoutVolume = true
		analyzer := NewAnalyzer(cfg, testLogger())
		got := analyzer.Analyze([]fundingDomain.SourceSnapshot{base, okSnap("okx", noVolume)})
		if len(got) != 1 {
			t.Fatalf("expected missing volume to pass, got %d", len(got))
		}
	})

	t.Run("thin volume kept when configured", func(t *testing.T) {
		// The flag turns the volume filter off entirely, even when both
		// sides publish a volume below the minimum.
		cfg := DefaultAnalyzerConfig()
		cfg.IncludeWithoutVolume = true
		analyzer := NewAnalyzer(cfg, testLogger())
		thinLong := rec("BTC/USDT:USDT", "binance", "-0.0001", "50000", "500")
		got := analyzer.Analyze([]fundingDomain.SourceSnapshot{okSnap("binance", thinLong), okSnap("bybit", thin)})
		if len(got) != 1 {
			t.Fatalf("expected thin market to pass with the filter disabled, got %d", len(got))
		}
		if !got[0].MinVolume24h.Equal(decimal.NewFromInt(500)) {
			t.Errorf("MinVolume24h = %s, want 500 kept on the record", got[0].MinVolume24h)
		}
	})
}

func TestAnalyzeInvariants(t *testing.T) {
	snapshots := []fundingDomain.SourceSnapshot{
		okSnap("binance",
			rec("BTC/USDT:USDT", "binance", "-0.0001", "50000", "1000000"),
			rec("ETH/USDT:USDT", "binance", "0.0007", "3000", "2000000")),
		okSnap("bybit",
			rec("BTC/USDT:USDT", "bybit", "0.0003", "50000", "1000000"),
			rec("ETH/USDT:USDT", "bybit", "-0.0002", "3000", "900000")),
		okSnap("okx",
			rec("BTC/USDT:USDT", "okx", "0.0005", "50010", "5000000")),
	}

	cfg := DefaultAnalyzerConfig()
	analyzer := NewAnalyzer(cfg, testLogger())
	opportunities := analyzer.Analyze(snapshots)

	if len(opportunities) == 0 {
		t.Fatal("expected opportunities")
	}
	for _, opp := range opportunities {
		if opp.Long.RatePercent.GreaterThan(opp.Short.RatePercent) {
			t.Errorf("%s: long rate %s > short rate %s",
				opp.Symbol, opp.Long.RatePercent, opp.Short.RatePercent)
		}
		if opp.FundingSpread.LessThan(cfg.MinFundingSpread) {
			t.Errorf("%s: spread %s below minimum %s",
				opp.Symbol, opp.FundingSpread, cfg.MinFundingSpread)
		}
	}

	// Scores must be descending.
	for i := 1; i < len(opportunities); i++ {
		if opportunities[i].QualityScore > opportunities[i-1].QualityScore {
			t.Errorf("opportunities not sorted: score[%d]=%f > score[%d]=%f",
				i, opportunities[i].QualityScore, i-1, opportunities[i-1].QualityScore)
		}
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	snapshots := []fundingDomain.SourceSnapshot{
		okSnap("binance",
			rec("BTC/USDT:USDT", "binance", "-0.0001", "50000", "1000000"),
			rec("ETH/USDT:USDT", "binance", "0.0004", "3000", "800000")),
		okSnap("bybit",
			rec("BTC/USDT:USDT", "bybit", "0.0003", "50000", "1000000"),
			rec("ETH/USDT:USDT", "bybit", "-0.0001", "3000", "800000")),
	}

	analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
	first := analyzer.Analyze(snapshots)
	second := analyzer.Analyze(snapshots)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Symbol != second[i].Symbol ||
			first[i].Long.Source != second[i].Long.Source ||
			first[i].Short.Source != second[i].Short.Source ||
			!first[i].FundingSpread.Equal(second[i].FundingSpread) {
			t.Errorf("run results diverge at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestAnalyzeUrgencyBonus(t *testing.T) {
	soon := time.Now().UTC().Add(30 * time.Minute)
	far := time.Now().UTC().Add(12 * time.Hour)

	build := func(next time.Time) []fundingDomain.SourceSnapshot {
		long := rec("BTC/USDT:USDT", "binance", "-0.0001", "50000", "1000000")
		short := rec("BTC/USDT:USDT", "bybit", "0.0003", "50000", "1000000")
		long.NextFundingAt = next
		short.NextFundingAt = next
		return []fundingDomain.SourceSnapshot{okSnap("binance", long), okSnap("bybit", short)}
	}

	analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
	soonOpps := analyzer.Analyze(build(soon))
	farOpps := analyzer.Analyze(build(far))

	if len(soonOpps) != 1 || len(farOpps) != 1 {
		t.Fatalf("expected one opportunity each, got %d and %d", len(soonOpps), len(farOpps))
	}
	if soonOpps[0].QualityScore <= farOpps[0].QualityScore {
		t.Errorf("imminent settlement should outscore distant one: %f <= %f",
			soonOpps[0].QualityScore, farOpps[0].QualityScore)
	}
}

func TestStats(t *testing.T) {
	snapshots := []fundingDomain.SourceSnapshot{
		okSnap("binance",
			rec("BTC/USDT:USDT", "binance", "0.0001", "50000", "1000000"),
			rec("ETH/USDT:USDT", "binance", "0.0002", "3000", "1000000")),
		okSnap("bybit", rec("BTC/USDT:USDT", "bybit", "0.0003", "50000", "1000000")),
		failedSnap("okx"),
	}

	stats := Stats(snapshots)
	if stats.TotalRates != 3 {
		t.Errorf("TotalRates = %d, want 3", stats.TotalRates)
	}
	if stats.SuccessfulSources != 2 {
		t.Errorf("SuccessfulSources = %d, want 2", stats.SuccessfulSources)
	}
	if stats.UniqueSymbols != 2 {
		t.Errorf("UniqueSymbols = %d, want 2", stats.UniqueSymbols)
	}
	if stats.MultiSourceSymbols != 1 {
		t.Errorf("MultiSourceSymbols = %d, want 1 (only BTC is on two sources)", stats.MultiSourceSymbols)
	}
}

func TestTopLimits(t *testing.T) {
	snapshots := []fundingDomain.SourceSnapshot{
		okSnap("binance",
			rec("BTC/USDT:USDT", "binance", "-0.0001", "50000", "1000000"),
			rec("ETH/USDT:USDT", "binance", "-0.0002", "3000", "1000000")),
		okSnap("bybit",
			rec("BTC/USDT:USDT", "bybit", "0.0003", "50000", "1000000"),
			rec("ETH/USDT:USDT", "bybit", "0.0004", "3000", "1000000")),
	}

	analyzer := NewAnalyzer(DefaultAnalyzerConfig(), testLogger())
	opportunities := analyzer.Analyze(snapshots)
	if len(opportunities) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(opportunities))
	}
	if got := Top(opportunities, 1); len(got) != 1 {
		t.Errorf("Top(1) returned %d", len(got))
	}
	if got := Top(opportunities, 0); len(got) != 2 {
		t.Errorf("Top(0) should not truncate, returned %d", len(got))
	}
	if got := Top(opportunities, 10); len(got) != 2 {
		t.Errorf("Top(10) returned %d", len(got))
	}
}
