// Package funding implements the funding bounded context: exchange
// connectors, concurrent aggregation and the TTL refresh cache.
package funding

import (
	"context"

	"github.com/perpwatch/funding-radar/business/funding/app"
	fundingDI "github.com/perpwatch/funding-radar/business/funding/di"
	"github.com/perpwatch/funding-radar/business/funding/infra/sources"
	"github.com/perpwatch/funding-radar/internal/config"
	"github.com/perpwatch/funding-radar/internal/di"
	"github.com/perpwatch/funding-radar/internal/logger"
	"github.com/perpwatch/funding-radar/internal/monolith"
)

// Module implements the funding bounded context.
type Module struct{}

// RegisterServices registers all funding services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Registry (public - cmd enumerates it for --sources)
	di.RegisterToken(c, fundingDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		log := sr.Get("logger").(logger.LoggerInterface)

		registry, err := buildRegistry(log)
		if err != nil {
			panic("failed to build connector registry: " + err.Error())
		}
		return registry
	})

	// Register Fetcher - private dependency
	di.RegisterToken(c, fundingDI.Fetcher, func(sr di.ServiceRegistry) *app.Fetcher {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewFetcher(fundingDI.GetRegistry(sr), log)
	})

	// Register Cache (public - exposed to other modules)
	di.RegisterToken(c, fundingDI.Cache, func(sr di.ServiceRegistry) *app.RefreshCache {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := fundingDI.GetRegistry(sr)

		names := cfg.Funding.Sources
		if len(names) == 0 {
			names = registry.NamesExcept(cfg.Funding.DisabledSources)
		}

		cache, err := app.NewRefreshCache(fundingDI.GetFetcher(sr), app.CacheConfig{
			Sources:          names,
			TTL:              cfg.Funding.CacheTTL,
			RefreshInterval:  cfg.Funding.RefreshInterval,
			PerSourceTimeout: cfg.Funding.PerSourceTimeout,
		}, log)
		if err != nil {
			panic("failed to create refresh cache: " + err.Error())
		}
		return cache
	})

	return nil
}

// Startup initializes the funding module. When background refresh is
// enabled it performs the first fetch round synchronously so dependents
// see a populated cache.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	if cfg.Funding.BackgroundRefresh {
		cache := fundingDI.GetCache(mono.Services())
		if err := cache.Start(ctx); err != nil {
			// A failed first round is not fatal; the loop is simply not
			// started and the next Get will retry.
			log.Warn(ctx, "initial fetch round failed", "error", err.Error())
		}
	}

	log.Info(ctx, "funding module started")
	return nil
}

// buildRegistry constructs every connector. A connector whose construction
// fails aborts startup; construction does no I/O, so failure here means a
// programming error, not a venue outage.
func buildRegistry(log logger.LoggerInterface) (*app.Registry, error) {
	type factory func(logger.LoggerInterface) (app.Connector, error)

	factories := []factory{
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewBinance(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewBybit(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewOKX(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewBitget(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewBingX(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewGate(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewMEXC(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewHyperliquid(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewBackpack(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewDrift(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewLighter(l) },
		func(l logger.LoggerInterface) (app.Connector, error) { return sources.NewPacifica(l) },
	}

	registry := app.NewRegistry()
	for _, build := range factories {
		connector, err := build(log)
		if err != nil {
			return nil, err
		}
		registry.Register(connector)
	}
	return registry, nil
}
