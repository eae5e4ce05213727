package app

import (
	"context"
	"testing"
	"time"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
)

func newTestCache(t *testing.T, cfg CacheConfig, connectors ...Connector) *RefreshCache {
	t.Helper()
	fetcher := NewFetcher(NewRegistry(connectors...), testLogger())
	cache, err := NewRefreshCache(fetcher, cfg, testLogger())
	if err != nil {
		t.Fatalf("NewRefreshCache: %v", err)
	}
	return cache
}

func TestCacheGetWithinTTLFetchesOnce(t *testing.T) {
	conn := &fakeConnector{
		name:    "binance",
		records: []domain.FundingRateRecord{record("BTC/USDT:USDT", "binance", "0.0001")},
	}
	cache := newTestCache(t, CacheConfig{
		Sources:          []string{"binance"},
		TTL:              time.Minute,
		RefreshInterval:  time.Minute,
		PerSourceTimeout: time.Second,
	}, conn)

	ctx := context.Background()
	if _, err := cache.Get(ctx, false); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if _, err := cache.Get(ctx, false); err != nil {
		t.Fatalf("second Get: %v", err)
	}

	if cache.FetchRounds() != 1 {
		t.Errorf("fetch rounds = %d, want 1", cache.FetchRounds())
	}
	if conn.calls != 1 {
		t.Errorf("connector calls = %d, want 1", conn.calls)
	}
}

func TestCacheForceRefresh(t *testing.T) {
	conn := &fakeConnector{
		name:    "bybit",
		records: []domain.FundingRateRecord{record("ETH/USDT:USDT", "bybit", "0.0002")},
	}
	cache := newTestCache(t, CacheConfig{
		Sources:          []string{"bybit"},
		TTL:              time.Minute,
		RefreshInterval:  time.Minute,
		PerSourceTimeout: time.Second,
	}, conn)

	ctx := context.Background()
	if _, err := cache.Get(ctx, false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := cache.Get(ctx, true); err != nil {
		t.Fatalf("forced Get: %v", err)
	}

	if cache.FetchRounds() != 2 {
		t.Errorf("fetch rounds = %d, want 2", cache.FetchRounds())
	}
}

func TestCacheStaleSnapshotRefetchedWithoutLoop(t *testing.T) {
	conn := &fakeConnector{
		name:    "okx",
		records: []domain.FundingRateRecord{record("SOL/USDT:USDT", "okx", "0.0001")},
	}
	cache := newTestCache(t, CacheConfig{
		Sources:          []string{"okx"},
		TTL:              10 * time.Millisecond,
		RefreshInterval:  time.Minute,
		PerSourceTimeout: time.Second,
	}, conn)

	ctx := context.Background()
	if _, err := cache.Get(ctx, false); err != nil {
		t.Fatalf("Get: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, err := cache.Get(ctx, false); err != nil {
		t.Fatalf("stale Get: %v", err)
	}
	if cache.FetchRounds() != 2 {
		t.Errorf("fetch rounds = %d, want 2 after TTL expiry", cache.FetchRounds())
	}
}

func TestCacheEmptyAggregate(t *testing.T) {
	conn := &fakeConnector{
		name: "gate",
		err:  apperror.New(apperror.CodeSourceError, apperror.WithSource("gate")),
	}
	cache := newTestCache(t, CacheConfig{
		Sources:          []string{"gate"},
		TTL:              time.Minute,
		RefreshInterval:  time.Minute,
		PerSourceTimeout: time.Second,
	}, conn)

	snap, err := cache.Get(context.Background(), false)
	if err == nil {
		t.Fatal("expected EmptyAggregate when every source fails")
	}
	if got := apperror.GetCode(err); got != apperror.CodeEmptyAggregate {
		t.Errorf("error code = %s, want %s", got, apperror.CodeEmptyAggregate)
	}
	// The round itself still yields one envelope per source.
	if len(snap.Snapshots) != 1 {
		t.Errorf("snapshots = %d, want 1", len(snap.Snapshots))
	}
}

func TestCacheGetSource(t *testing.T) {
	conn := &fakeConnector{
		name:    "binance",
		records: []domain.FundingRateRecord{record("BTC/USDT:USDT", "binance", "0.0001")},
	}
	cache := newTestCache(t, CacheConfig{
		Sources:          []string{"binance"},
		TTL:              time.Minute,
		RefreshInterval:  time.Minute,
		PerSourceTimeout: time.Second,
	}, conn)

	snap, err := cache.GetSource(context.Background(), "binance")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if snap.Source != "binance" || len(snap.Records) != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if _, err := cache.GetSource(context.Background(), "kraken"); err == nil {
		t.Fatal("expected error for a source outside the configured set")
	} else if got := apperror.GetCode(err); got != apperror.CodeUnknownSource {
		t.Errorf("error code = %s, want %s", got, apperror.CodeUnknownSource)
	}
}

func TestCacheStartStopLoop(t *testing.T) {
	conn := &fakeConnector{
		name:    "mexc",
		records: []domain.FundingRateRecord{record("BTC/USDT:USDT", "mexc", "0.0001")},
	}
	cache := newTestCache(t, CacheConfig{
		Sources:          []string{"mexc"},
		TTL:              time.Hour,
		RefreshInterval:  20 * time.Millisecond,
		PerSourceTimeout: time.Second,
	}, conn)

	if err := cache.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(70 * time.Millisecond)
	cache.Stop()

	rounds := cache.FetchRounds()
	if rounds < 2 {
		t.Errorf("fetch rounds = %d, want the loop to have refreshed at least once", rounds)
	}

	// After Stop no further rounds happen.
	time.Sleep(50 * time.Millisecond)
	if cache.FetchRounds() != rounds {
		t.Error("loop kept refreshing after Stop")
	}

	info := cache.Info()
	if info.State != CacheFresh {
		t.Errorf("state = %s, want fresh", info.State)
	}
	if info.LoopRunning {
		t.Error("Info should report the loop stopped")
	}
}

func TestCacheRejectsInvalidConfig(t *testing.T) {
	fetcher := NewFetcher(NewRegistry(), testLogger())

	tests := []struct {
		name string
		cfg  CacheConfig
	}{
		{"zero ttl", CacheConfig{TTL: 0, RefreshInterval: time.Minute, PerSourceTimeout: time.Second}},
		{"negative ttl", CacheConfig{TTL: -time.Second, RefreshInterval: time.Minute, PerSourceTimeout: time.Second}},
		{"zero interval", CacheConfig{TTL: time.Minute, RefreshInterval: 0, PerSourceTimeout: time.Second}},
		{"zero timeout", CacheConfig{TTL: time.Minute, RefreshInterval: time.Minute, PerSourceTimeout: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRefreshCache(fetcher, tt.cfg, testLogger())
			if err == nil {
				t.Fatal("expected construction error")
			}
			if got := apperror.GetCode(err); got != apperror.CodeInvalidConfig {
				t.Errorf("error code = %s, want %s", got, apperror.CodeInvalidConfig)
			}
		})
	}
}
