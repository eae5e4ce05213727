// Package di contains dependency injection tokens for the funding context.
package di

import (
	"github.com/perpwatch/funding-radar/business/funding/app"
	"github.com/perpwatch/funding-radar/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Cache    = di.NewToken[*app.RefreshCache]("funding.Cache")
	Registry = di.NewToken[*app.Registry]("funding.Registry")
)

// Private dependency tokens - internal to funding module
var (
	Fetcher = di.NewToken[*app.Fetcher]("funding:fetcher")
)

// Helper functions for type-safe access
func GetCache(c di.ServiceRegistry) *app.RefreshCache {
	return di.GetToken(c, Cache)
}

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetFetcher(c di.ServiceRegistry) *app.Fetcher {
	return di.GetToken(c, Fetcher)
}
