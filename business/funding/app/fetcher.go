package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/logger"
)

// Fetcher fans out concurrent connector invocations with per-source
// isolation: one source's failure or timeout produces exactly one failed
// snapshot and never aborts the round.
type Fetcher struct {
	registry *Registry
	log      logger.LoggerInterface
}

// NewFetcher creates a Fetcher over the given registry.
func NewFetcher(registry *Registry, log logger.LoggerInterface) *Fetcher {
	return &Fetcher{registry: registry, log: log}
}

// FetchAll queries the named sources concurrently and returns one snapshot
// per requested name, in request order. Partial failure is the expected
// steady state; the only error return is a caller contract violation
// (an unknown source name).
func (f *Fetcher) FetchAll(ctx context.Context, names []string, perSourceTimeout time.Duration) ([]domain.SourceSnapshot, error) {
	// Resolve everything up front so a bad name fails before any I/O.
	connectors := make([]Connector, len(names))
	for i, name := range names {
		c, err := f.registry.Resolve(name)
		if err != nil {
			return nil, err
		}
		connectors[i] = c
	}

	results := make([]domain.SourceSnapshot, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, connector := range connectors {
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, connector, perSourceTimeout)
			return nil
		})
	}

	// Tasks never return errors; Wait is only a join point.
	_ = g.Wait()

	return results, nil
}

// fetchOne runs a single connector under its own deadline. The deadline is
// carried in the context so the connector closes its transport on expiry
// rather than being abandoned mid-request.
func (f *Fetcher) fetchOne(ctx context.Context, connector Connector, timeout time.Duration) domain.SourceSnapshot {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	done := make(chan domain.SourceSnapshot, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.SourceSnapshot{
					Source:    connector.Name(),
					FetchedAt: time.Now().UTC(),
					Elapsed:   time.Since(start),
					Err: apperror.New(apperror.CodeSourceError,
						apperror.WithSource(connector.Name()),
						apperror.WithMessage(fmt.Sprintf("connector panicked: %v", r))),
				}
			}
		}()
		done <- connector.FetchFundingRates(fetchCtx)
	}()

	select {
	case snap := <-done:
		if snap.Err != nil {
			f.log.Warn(ctx, "source fetch failed",
				"source", connector.Name(),
				"elapsed", time.Since(start).String(),
				"error", snap.Err.Error())
		} else {
			f.log.Debug(ctx, "source fetch completed",
				"source", connector.Name(),
				"records", len(snap.Records),
				"elapsed", time.Since(start).String())
		}
		return snap

	case <-fetchCtx.Done():
		// A connector that ignores its deadline must not hold the round
		// hostage; substitute a synthetic failed snapshot.
		f.log.Warn(ctx, "source fetch timed out",
			"source", connector.Name(),
			"timeout", timeout.String())
		return domain.SourceSnapshot{
			Source:    connector.Name(),
			FetchedAt: time.Now().UTC(),
			Elapsed:   time.Since(start),
			Err:       apperror.Timeout(connector.Name(), timeout),
		}
	}
}
