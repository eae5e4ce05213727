// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/perpwatch/funding-radar/business/arbitrage/app"
	"github.com/perpwatch/funding-radar/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Analyzer = di.NewToken[*app.Analyzer]("arbitrage.Analyzer")
)

// Private dependency tokens - internal to arbitrage module
var (
	Reporter = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetAnalyzer(c di.ServiceRegistry) *app.Analyzer {
	return di.GetToken(c, Analyzer)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
