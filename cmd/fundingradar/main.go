// Package main is the entry point for the funding radar.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/perpwatch/funding-radar/business/arbitrage"
	arbitrageApp "github.com/perpwatch/funding-radar/business/arbitrage/app"
	arbitrageDI "github.com/perpwatch/funding-radar/business/arbitrage/di"
	arbitrageDomain "github.com/perpwatch/funding-radar/business/arbitrage/domain"
	"github.com/perpwatch/funding-radar/business/funding"
	fundingApp "github.com/perpwatch/funding-radar/business/funding/app"
	fundingDI "github.com/perpwatch/funding-radar/business/funding/di"
	"github.com/perpwatch/funding-radar/internal/apm"
	"github.com/perpwatch/funding-radar/internal/config"
	"github.com/perpwatch/funding-radar/internal/health"
	"github.com/perpwatch/funding-radar/internal/logger"
	"github.com/perpwatch/funding-radar/internal/metrics"
	"github.com/perpwatch/funding-radar/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const topMoversShown = 5

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	sourcesFlag := flag.String("sources", "", "Comma-separated source names to query (default: all enabled)")
	timeoutFlag := flag.Duration("timeout", 0, "Per-source fetch timeout override")
	limitFlag := flag.Int("limit", 0, "Maximum opportunities to display")
	forceFlag := flag.Bool("force", false, "Bypass the cache and fetch fresh data")
	watchFlag := flag.Bool("watch", false, "Keep running and re-analyze on every refresh")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("funding-radar %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	opts := runOptions{
		configPath: *configPath,
		sources:    splitSources(*sourcesFlag),
		timeout:    *timeoutFlag,
		limit:      *limitFlag,
		force:      *forceFlag,
		watch:      *watchFlag,
	}
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath string
	sources    []string
	timeout    time.Duration
	limit      int
	force      bool
	watch      bool
}

func run(ctx context.Context, opts runOptions) error {
	// Load configuration
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flag overrides
	if len(opts.sources) > 0 {
		cfg.Funding.Sources = opts.sources
	}
	if opts.timeout > 0 {
		cfg.Funding.PerSourceTimeout = opts.timeout
	}
	if opts.limit <= 0 {
		opts.limit = cfg.Arbitrage.DefaultLimit
	}
	// One-shot runs fetch on demand; only watch mode needs the loop.
	cfg.Funding.BackgroundRefresh = opts.watch

	// Setup logger
	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting funding radar",
		"version", version,
		"environment", cfg.App.Environment,
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Health server only makes sense for a long-running process.
	var healthServer *health.Server
	if opts.watch {
		healthServer = health.NewServer(cfg.App.HealthPort, version)
		if err := healthServer.Start(); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
		} else {
			log.Info(ctx, "health server started", "port", cfg.App.HealthPort)
		}
		defer healthServer.Stop(ctx)
	}

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	modules := []monolith.Module{
		&funding.Module{},   // Provides the aggregated snapshot cache
		&arbitrage.Module{}, // Consumes it
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	cache := fundingDI.GetCache(mono.Services())
	analyzer := arbitrageDI.GetAnalyzer(mono.Services())
	reporter := arbitrageDI.GetReporter(mono.Services())

	if healthServer != nil {
		healthServer.RegisterCheck("funding_cache", func(ctx context.Context) (bool, string) {
			info := cache.Info()
			if info.State == fundingApp.CacheEmpty {
				return false, "no snapshot held yet"
			}
			return true, fmt.Sprintf("%s, %d records, age %s",
				info.State, info.TotalRecords, info.Age.Round(time.Second))
		})
	}

	if opts.watch {
		defer cache.Stop()
		return runWatch(ctx, cache, analyzer, reporter, cfg, opts.limit, log)
	}
	return runOnce(ctx, cache, analyzer, reporter, opts.force, opts.limit, log)
}

// runOnce performs a single fetch-analyze-report cycle.
func runOnce(ctx context.Context, cache *fundingApp.RefreshCache, analyzer *arbitrageApp.Analyzer, reporter arbitrageApp.Reporter, force bool, limit int, log logger.LoggerInterface) error {
	snapshot, err := cache.Get(ctx, force)
	if err != nil {
		if len(snapshot.Snapshots) > 0 {
			// Every source failed: report the outcomes, then surface
			// the no-data condition.
			reporter.ReportSources(snapshot.Snapshots)
		}
		return fmt.Errorf("no rates collected: %w", err)
	}

	reporter.ReportSources(snapshot.Snapshots)
	reporter.ReportMarket(arbitrageDomain.NewMarketSummary(snapshot, topMoversShown))
	reporter.ReportOpportunities(arbitrageApp.Top(analyzer.Analyze(snapshot.Snapshots), limit))
	return nil
}

// runWatch re-analyzes after every background refresh until cancelled.
func runWatch(ctx context.Context, cache *fundingApp.RefreshCache, analyzer *arbitrageApp.Analyzer, reporter arbitrageApp.Reporter, cfg *config.Config, limit int, log logger.LoggerInterface) error {
	if err := runOnce(ctx, cache, analyzer, reporter, false, limit, log); err != nil {
		log.Warn(ctx, "initial analysis failed", "error", err.Error())
	}

	ticker := time.NewTicker(cfg.Funding.RefreshInterval)
	defer ticker.Stop()

	lastRound := cache.FetchRounds()
	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "shutting down")
			return nil
		case <-ticker.C:
			// Only re-report when the background loop produced new data.
			if round := cache.FetchRounds(); round != lastRound {
				lastRound = round
				if err := runOnce(ctx, cache, analyzer, reporter, false, limit, log); err != nil {
					log.Warn(ctx, "analysis failed", "error", err.Error())
				}
			}
		}
	}
}

func splitSources(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
