package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return v
}

func TestNewRecordRateConsistency(t *testing.T) {
	tests := []struct {
		name string
		rate string
		want string
	}{
		{"positive", "0.0001", "0.01"},
		{"negative", "-0.0025", "-0.25"},
		{"zero", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("BTC/USDT:USDT", "binance", d(t, tt.rate), 8, time.Now())
			if !rec.RatePercent.Equal(d(t, tt.want)) {
				t.Errorf("RatePercent = %s, want %s", rec.RatePercent, tt.want)
			}
			if !rec.RatePercent.Equal(rec.Rate.Mul(decimal.NewFromInt(100))) {
				t.Errorf("RatePercent %s is not Rate*100", rec.RatePercent)
			}
		})
	}
}

func TestAnnualizedRatePercent(t *testing.T) {
	tests := []struct {
		name     string
		rate     string
		interval int
		want     string
	}{
		// 0.01% every 8h -> 0.03% daily -> 10.95% annualized
		{"eight hour", "0.0001", 8, "10.95"},
		// 0.01% hourly -> 0.24% daily -> 87.6% annualized
		{"hourly", "0.0001", 1, "87.6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("ETH/USDT:USDT", "bybit", d(t, tt.rate), tt.interval, time.Now())
			if got := rec.AnnualizedRatePercent(); !got.Equal(d(t, tt.want)) {
				t.Errorf("AnnualizedRatePercent = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSnapshotTopRates(t *testing.T) {
	now := time.Now()
	snap := SourceSnapshot{
		Source: "bybit",
		Records: []FundingRateRecord{
			NewRecord("BTC/USDT:USDT", "bybit", d(t, "0.0001"), 8, now),
			NewRecord("ETH/USDT:USDT", "bybit", d(t, "-0.0003"), 8, now),
			NewRecord("SOL/USDT:USDT", "bybit", d(t, "0.0005"), 8, now),
		},
		FetchedAt: now,
	}

	top := snap.TopPositive(2)
	if len(top) != 2 || top[0].Symbol != "SOL/USDT:USDT" || top[1].Symbol != "BTC/USDT:USDT" {
		t.Errorf("TopPositive(2) returned wrong records: %+v", top)
	}

	bottom := snap.TopNegative(1)
	if len(bottom) != 1 || bottom[0].Symbol != "ETH/USDT:USDT" {
		t.Errorf("TopNegative(1) returned wrong records: %+v", bottom)
	}

	// Input order must be untouched.
	if snap.Records[0].Symbol != "BTC/USDT:USDT" {
		t.Errorf("TopPositive mutated snapshot order")
	}
}

func TestSnapshotTopRatesFilterBySign(t *testing.T) {
	now := time.Now()
	snap := SourceSnapshot{
		Source: "binance",
		Records: []FundingRateRecord{
			NewRecord("BTC/USDT:USDT", "binance", d(t, "0.0002"), 8, now),
			NewRecord("ETH/USDT:USDT", "binance", d(t, "-0.0001"), 8, now),
			NewRecord("SOL/USDT:USDT", "binance", d(t, "0"), 8, now),
		},
		FetchedAt: now,
	}

	// Asking for more than exist must not pad with the other sign or zero.
	top := snap.TopPositive(5)
	if len(top) != 1 || top[0].Symbol != "BTC/USDT:USDT" {
		t.Errorf("TopPositive(5) must hold only positive rates, got %+v", top)
	}
	bottom := snap.TopNegative(5)
	if len(bottom) != 1 || bottom[0].Symbol != "ETH/USDT:USDT" {
		t.Errorf("TopNegative(5) must hold only negative rates, got %+v", bottom)
	}
}
