package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

// CacheState describes the lifecycle of the held snapshot.
type CacheState string

const (
	CacheEmpty CacheState = "empty"
	CacheFresh CacheState = "fresh"
	CacheStale CacheState = "stale"
)

// CacheConfig configures a RefreshCache.
type CacheConfig struct {
	// Sources is the ordered set of connector names each round queries.
	Sources []string
	// TTL is how long a snapshot is served as fresh.
	TTL time.Duration
	// RefreshInterval is the background loop's sleep between rounds.
	RefreshInterval time.Duration
	// PerSourceTimeout bounds each connector invocation within a round.
	PerSourceTimeout time.Duration
}

// CacheInfo is a point-in-time description of the cache, for status output.
type CacheInfo struct {
	State          CacheState
	Age            time.Duration
	TTL            time.Duration
	FetchRounds    int64
	TotalRecords   int
	HealthySources []string
	FailedSources  []string
	LoopRunning    bool
}

// RefreshCache wraps the Fetcher with a TTL and an optional background
// refresh loop, decoupling caller latency from source latency. The held
// snapshot is the only mutable shared state; reads are lock-free, and
// refresh rounds are serialized so only one fetch is ever in flight.
type RefreshCache struct {
	fetcher *Fetcher
	cfg     CacheConfig
	log     logger.LoggerInterface

	snapshot atomic.Pointer[domain.AggregatedSnapshot]

	refreshMu   sync.Mutex
	fetchRounds atomic.Int64

	loopRunning atomic.Bool
	loopCancel  context.CancelFunc
	loopDone    chan struct{}

	roundCounter metric.Int64Counter
}

// NewRefreshCache creates a cache in the Empty state. It validates the
// config; a non-positive TTL or interval is a construction error.
func NewRefreshCache(fetcher *Fetcher, cfg CacheConfig, log logger.LoggerInterface) (*RefreshCache, error) {
	if cfg.TTL <= 0 {
		return nil, apperror.New(apperror.CodeInvalidConfig, apperror.WithContext("cache TTL must be positive"))
	}
	if cfg.RefreshInterval <= 0 {
		return nil, apperror.New(apperror.CodeInvalidConfig, apperror.WithContext("refresh interval must be positive"))
	}
	if cfg.PerSourceTimeout <= 0 {
		return nil, apperror.New(apperror.CodeInvalidConfig, apperror.WithContext("per-source timeout must be positive"))
	}

	meter := otel.GetMeterProvider().Meter("funding_cache")
	roundCounter, err := meter.Int64Counter(
		"funding_fetch_rounds_total",
		metric.WithDescription("Total number of fetch rounds performed"),
	)
	if err != nil {
		return nil, err
	}

	return &RefreshCache{
		fetcher:      fetcher,
		cfg:          cfg,
		log:          log,
		roundCounter: roundCounter,
	}, nil
}

// Get returns the aggregated snapshot, refreshing first when the cache is
// empty, when force is set, or when the snapshot is stale and no background
// loop is expected to replace it shortly. A stale snapshot with a running
// loop is served as-is: availability wins over strict freshness.
func (c *RefreshCache) Get(ctx context.Context, force bool) (domain.AggregatedSnapshot, error) {
	snap := c.snapshot.Load()

	needRefresh := force ||
		snap == nil ||
		(snap.IsStale(time.Now()) && !c.loopRunning.Load())

	if needRefresh {
		refreshed, err := c.refresh(ctx, force)
		if err != nil {
			return domain.AggregatedSnapshot{}, err
		}
		snap = refreshed
	}

	if snap.Empty() {
		return *snap, apperror.New(apperror.CodeEmptyAggregate)
	}
	return *snap, nil
}

// GetSource returns the latest snapshot for one source, refreshing under
// the same rules as Get.
func (c *RefreshCache) GetSource(ctx context.Context, name string) (domain.SourceSnapshot, error) {
	agg, err := c.Get(ctx, false)
	if err != nil {
		return domain.SourceSnapshot{}, err
	}
	for _, s := range agg.Snapshots {
		if s.Source == name {
			return s, nil
		}
	}
	return domain.SourceSnapshot{}, apperror.New(apperror.CodeUnknownSource,
		apperror.WithContext("source "+name+" not in the configured set"))
}

// Last returns the held snapshot without triggering any refresh.
func (c *RefreshCache) Last() (domain.AggregatedSnapshot, bool) {
	snap := c.snapshot.Load()
	if snap == nil {
		return domain.AggregatedSnapshot{}, false
	}
	return *snap, true
}

// refresh performs one fetch round under mutual exclusion. A caller that
// lost the race to a concurrent refresh reuses the winner's result instead
// of fetching again.
func (c *RefreshCache) refresh(ctx context.Context, force bool) (*domain.AggregatedSnapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Double-check under the lock: another caller may have just refreshed.
	if snap := c.snapshot.Load(); snap != nil && !force && !snap.IsStale(time.Now()) {
		return snap, nil
	}

	snapshots, err := c.fetcher.FetchAll(ctx, c.cfg.Sources, c.cfg.PerSourceTimeout)
	if err != nil {
		return nil, err
	}

	snap := &domain.AggregatedSnapshot{
		Snapshots: snapshots,
		FetchedAt: time.Now().UTC(),
		TTL:       c.cfg.TTL,
	}
	c.snapshot.Store(snap)
	c.fetchRounds.Add(1)
	c.roundCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("sources", len(c.cfg.Sources)),
		attribute.Int("healthy", len(snap.Healthy())),
	))

	c.log.Info(ctx, "fetch round completed",
		"sources", len(snapshots),
		"healthy", len(snap.Healthy()),
		"records", snap.TotalRecords())

	return snap, nil
}

// Start performs one synchronous fetch round, then launches the background
// refresh loop. Loop errors are logged and the loop continues; a single bad
// round must not kill it.
func (c *RefreshCache) Start(ctx context.Context) error {
	if !c.loopRunning.CompareAndSwap(false, true) {
		return nil
	}

	if _, err := c.refresh(ctx, true); err != nil {
		c.loopRunning.Store(false)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.loopCancel = cancel
	c.loopDone = make(chan struct{})

	go c.loop(loopCtx)

	return nil
}

func (c *RefreshCache) loop(ctx context.Context) {
	defer close(c.loopDone)

	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.refresh(ctx, true); err != nil {
				c.log.Error(ctx, "background refresh failed", "error", err.Error())
			}
		}
	}
}

// Stop cancels the background loop and waits for it to exit.
func (c *RefreshCache) Stop() {
	if !c.loopRunning.CompareAndSwap(true, false) {
		return
	}
	c.loopCancel()
	<-c.loopDone
}

// FetchRounds returns how many fetch rounds have completed.
func (c *RefreshCache) FetchRounds() int64 {
	return c.fetchRounds.Load()
}

// Info describes the cache's current state for status commands.
func (c *RefreshCache) Info() CacheInfo {
	info := CacheInfo{
		State:       CacheEmpty,
		TTL:         c.cfg.TTL,
		FetchRounds: c.fetchRounds.Load(),
		LoopRunning: c.loopRunning.Load(),
	}

	snap := c.snapshot.Load()
	if snap == nil {
		return info
	}

	now := time.Now()
	info.Age = snap.Age(now)
	info.TotalRecords = snap.TotalRecords()
	if snap.IsStale(now) {
		info.State = CacheStale
	} else {
		info.State = CacheFresh
	}
	for _, s := range snap.Snapshots {
		if s.OK() {
			info.HealthySources = append(info.HealthySources, s.Source)
		} else {
			info.FailedSources = append(info.FailedSources, s.Source)
		}
	}
	return info
}
