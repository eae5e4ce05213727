package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// fakeConnector is a scriptable connector for fetcher and cache tests.
type fakeConnector struct {
	name    string
	records []domain.FundingRateRecord
	err     error
	delay   time.Duration
	panics  bool
	calls   int
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) FetchFundingRates(ctx context.Context) domain.SourceSnapshot {
	f.calls++
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.SourceSnapshot{
				Source:    f.name,
				FetchedAt: time.Now().UTC(),
				Err:       apperror.Timeout(f.name, f.delay),
			}
		}
	}
	return domain.SourceSnapshot{
		Source:    f.name,
		Records:   f.records,
		FetchedAt: time.Now().UTC(),
		Err:       f.err,
	}
}

func record(symbol, source, rate string) domain.FundingRateRecord {
	return domain.NewRecord(symbol, source, decimal.RequireFromString(rate), 8, time.Now().Add(4*time.Hour))
}

func TestFetchAllPreservesRequestOrder(t *testing.T) {
	reg := NewRegistry(
		&fakeConnector{name: "slow", delay: 50 * time.Millisecond, records: []domain.FundingRateRecord{record("BTC/USDT:USDT", "slow", "0.0001")}},
		&fakeConnector{name: "fast", records: []domain.FundingRateRecord{record("BTC/USDT:USDT", "fast", "0.0002")}},
	)
	fetcher := NewFetcher(reg, testLogger())

	names := []string{"slow", "fast"}
	snaps, err := fetcher.FetchAll(context.Background(), names, time.Second)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if len(snaps) != len(names) {
		t.Fatalf("got %d snapshots, want %d", len(snaps), len(names))
	}
	for i, name := range names {
		if snaps[i].Source != name {
			t.Errorf("snapshot %d is %q, want %q", i, snaps[i].Source, name)
		}
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	reg := NewRegistry(
		&fakeConnector{name: "broken", err: apperror.New(apperror.CodeSourceError, apperror.WithSource("broken"))},
		&fakeConnector{name: "healthy", records: []domain.FundingRateRecord{record("ETH/USDT:USDT", "healthy", "0.0001")}},
	)
	fetcher := NewFetcher(reg, testLogger())

	snaps, err := fetcher.FetchAll(context.Background(), []string{"broken", "healthy"}, time.Second)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if snaps[0].OK() {
		t.Error("broken source should carry an error")
	}
	if !snaps[1].OK() || len(snaps[1].Records) != 1 {
		t.Errorf("healthy source should be unaffected, got %+v", snaps[1])
	}
}

func TestFetchAllTimeoutProducesSyntheticSnapshot(t *testing.T) {
	reg := NewRegistry(
		&fakeConnector{name: "stuck", delay: 5 * time.Second},
		&fakeConnector{name: "quick", records: []domain.FundingRateRecord{record("SOL/USDT:USDT", "quick", "0.0003")}},
	)
	fetcher := NewFetcher(reg, testLogger())

	start := time.Now()
	snaps, err := fetcher.FetchAll(context.Background(), []string{"stuck", "quick"}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	// The round is bounded by the per-source timeout, not the sum of
	// individual latencies.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("round took %s, should be bounded by the per-source timeout", elapsed)
	}

	if snaps[0].OK() {
		t.Fatal("stuck source should have timed out")
	}
	if got := apperror.GetCode(snaps[0].Err); got != apperror.CodeSourceTimeout {
		t.Errorf("error code = %s, want %s", got, apperror.CodeSourceTimeout)
	}
	if len(snaps[0].Records) != 0 {
		t.Error("timed-out snapshot must have no records")
	}
	if !snaps[1].OK() {
		t.Errorf("quick source should be unaffected: %v", snaps[1].Err)
	}
}

func TestFetchAllRecoversConnectorPanic(t *testing.T) {
	reg := NewRegistry(
		&fakeConnector{name: "panicky", panics: true},
		&fakeConnector{name: "calm", records: []domain.FundingRateRecord{record("BTC/USDT:USDT", "calm", "0.0001")}},
	)
	fetcher := NewFetcher(reg, testLogger())

	snaps, err := fetcher.FetchAll(context.Background(), []string{"panicky", "calm"}, time.Second)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if snaps[0].OK() {
		t.Error("panicking source should produce a failed snapshot")
	}
	if !snaps[1].OK() {
		t.Error("other sources should be unaffected by a panic")
	}
}

func TestFetchAllUnknownSource(t *testing.T) {
	fetcher := NewFetcher(NewRegistry(), testLogger())

	_, err := fetcher.FetchAll(context.Background(), []string{"nope"}, time.Second)
	if err == nil {
		t.Fatal("expected error for unknown source name")
	}
	if got := apperror.GetCode(err); got != apperror.CodeUnknownSource {
		t.Errorf("error code = %s, want %s", got, apperror.CodeUnknownSource)
	}
}

func TestRegistryResolveAndEnumerate(t *testing.T) {
	a := &fakeConnector{name: "alpha"}
	b := &fakeConnector{name: "beta"}
	reg := NewRegistry(a, b)

	got, err := reg.Resolve("alpha")
	if err != nil || got != Connector(a) {
		t.Errorf("Resolve(alpha) = %v, %v", got, err)
	}
	if _, err := reg.Resolve("gamma"); err == nil {
		t.Error("Resolve(gamma) should fail")
	}

	names := reg.AllNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("AllNames = %v, want registration order", names)
	}

	filtered := reg.NamesExcept([]string{"alpha"})
	if len(filtered) != 1 || filtered[0] != "beta" {
		t.Errorf("NamesExcept = %v", filtered)
	}
}
