// Package arbitrage implements the arbitrage bounded context: spread
// analysis over aggregated funding snapshots and result presentation.
package arbitrage

import (
	"context"

	"github.com/perpwatch/funding-radar/business/arbitrage/app"
	arbitrageDI "github.com/perpwatch/funding-radar/business/arbitrage/di"
	"github.com/perpwatch/funding-radar/business/arbitrage/infra"
	"github.com/perpwatch/funding-radar/internal/config"
	"github.com/perpwatch/funding-radar/internal/di"
	"github.com/perpwatch/funding-radar/internal/logger"
	"github.com/perpwatch/funding-radar/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Analyzer (public - exposed to other modules)
	di.RegisterToken(c, arbitrageDI.Analyzer, func(sr di.ServiceRegistry) *app.Analyzer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewAnalyzer(app.AnalyzerConfig{
			MinFundingSpread:      cfg.Arbitrage.MinFundingSpreadDecimal(),
			MaxPriceSpread:        cfg.Arbitrage.MaxPriceSpreadDecimal(),
			MinVolume24h:          cfg.Arbitrage.MinVolumeDecimal(),
			MinSources:            cfg.Arbitrage.MinSources,
			MaxTimeToFundingHours: cfg.Arbitrage.MaxTimeToFundingHours,
			IncludeWithoutVolume:  cfg.Arbitrage.IncludeWithoutVolume,
		}, log)
	})

	// Register Reporter - private dependency
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		return infra.NewConsoleReporter()
	})

	return nil
}

// Startup initializes the arbitrage module. The analyzer is pure
// computation, so there is nothing to connect.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "arbitrage module started")
	return nil
}
