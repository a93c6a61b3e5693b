// Package main is the entry point for the flash-loan arbitrage engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/flashloan-arb/business/agent"
	"github.com/fd1az/flashloan-arb/business/amm"
	"github.com/fd1az/flashloan-arb/business/arbitrage"
	arbApp "github.com/fd1az/flashloan-arb/business/arbitrage/app"
	arbInfra "github.com/fd1az/flashloan-arb/business/arbitrage/infra"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/httpapi"
	"github.com/fd1az/flashloan-arb/business/blockchain"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/business/lending"
	"github.com/fd1az/flashloan-arb/business/oracle"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/health"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/metrics"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/internal/wsconn"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const statusInterval = time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	verbose := flag.Bool("verbose", false, "In CLI mode, also print losing scans")
	watchURL := flag.String("watch", "", "Print the event feed of a running engine (ws://host:port/v1/events)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flasharb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode && *watchURL == ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	var err error
	if *watchURL != "" {
		err = watch(ctx, *configPath, *watchURL)
	} else {
		err = run(ctx, cancel, *configPath, tuiMode, *verbose)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, configPath string, tuiMode, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.TUIMode = tuiMode

	var log *logger.Logger
	if tuiMode {
		// In TUI mode, suppress logs (discard output)
		log = logger.New(io.Discard, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
		log.Info(ctx, "starting flash-loan arbitrage engine",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	stopTelemetry, err := startTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	healthServer := health.NewServer(cfg.Health.Port, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer healthServer.Stop(context.Background())

	mono, err := monolith.New(ctx, cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	formatter := arbInfra.NewFormatter(mono.AssetRegistry(), cfg.Ethereum.ChainID)

	var (
		reporter arbApp.Reporter
		tui      *arbInfra.TUIReporter
		modules  []monolith.Module
	)
	startModules := func() error {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		go reportConnections(ctx, mono, reporter)
		return nil
	}

	if tuiMode {
		tui = arbInfra.NewTUIReporter(formatter, ui.Options{
			Title:       "FLASH ARB",
			Connections: connectionNames(cfg),
			// Modules start once the welcome screen ends, so connection
			// progress shows on the dashboard.
			OnStart: func() {
				if err := startModules(); err != nil {
					tui.Error(err)
				}
			},
		}, cancel)
		reporter = tui
	} else {
		reporter = arbInfra.NewConsoleReporter(os.Stdout, formatter, verbose)
	}

	// Define modules in dependency order
	modules = []monolith.Module{
		&blockchain.Module{}, // Must be first - provides block delivery and fee reads
		&amm.Module{},        // Pools, routers and the reserve mirror
		&oracle.Module{},     // Reference and fee-unit feeds
		&lending.Module{},    // Flash-loan facility
		&arbitrage.Module{Reporter: reporter},
		&agent.Module{}, // Depends on every module above
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if err := reporter.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reporter: %w", err)
	}
	defer reporter.Stop()

	if tui != nil {
		select {
		case <-ctx.Done():
		case <-tui.Done():
		}
		return nil
	}

	if err := startModules(); err != nil {
		return err
	}
	log.Info(ctx, "all modules started")

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	return nil
}

func connectionNames(cfg *config.Config) []string {
	names := []string{"node"}
	if cfg.API.Enabled {
		names = append(names, "api")
	}
	return names
}

// reportConnections pushes the block source state to the reporter until
// ctx ends.
func reportConnections(ctx context.Context, mono monolith.Monolith, r arbApp.Reporter) {
	svc := blockchainDI.GetBlockchainService(mono.Services())
	if mono.Config().API.Enabled {
		r.UpdateConnectionStatus("api", true, 0)
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		st := svc.Status()
		var latency time.Duration
		if !st.LastUpdate.IsZero() {
			latency = time.Since(st.LastUpdate)
		}
		r.UpdateConnectionStatus("node", st.State == blockchainDomain.StateConnected, latency)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	tp, err := apm.NewTraceProvider(ctx, log, apm.Config{
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.TraceProvider, "endpoint", cfg.Telemetry.OTLPEndpoint)

	provider := metrics.ProviderCfg{Provider: metrics.PrometheusProvider}
	if metrics.Provider(cfg.Telemetry.MetricProvider) == metrics.OtelCollector {
		provider = metrics.NewOtelCollectorConfig(cfg.Telemetry.OTLPEndpoint, parseHeaders(cfg.Telemetry.OTLPHeaders), false)
	}
	if _, err := metrics.NewMetricProvider(ctx,
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(provider),
	); err != nil {
		tp.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	if provider.Provider == metrics.PrometheusProvider {
		port := cfg.Telemetry.PrometheusPort
		go func() {
			if err := metrics.ServePrometheusMetrics(ctx, metrics.WithPort(strconv.Itoa(port))); err != nil {
				log.Error(ctx, "prometheus metrics server failed", "error", err)
			}
		}()
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}

	return func() { tp.Stop() }, nil
}

// parseHeaders reads "k1=v1,k2=v2".
func parseHeaders(s string) map[string]string {
	out := map[string]string{}
	for _, kv := range strings.Split(s, ",") {
		if k, v, ok := strings.Cut(strings.TrimSpace(kv), "="); ok {
			out[k] = v
		}
	}
	return out
}

// watch prints a remote engine's event feed until ctx ends.
func watch(ctx context.Context, configPath, url string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	reporter := arbInfra.NewConsoleReporter(os.Stdout, arbInfra.NewFormatter(nil, cfg.Ethereum.ChainID), false)

	client, err := wsconn.New(wsconn.DefaultConfig(url, "events"))
	if err != nil {
		return err
	}
	client.OnMessage(func(ctx context.Context, msg []byte) {
		ev, err := httpapi.DecodeEvent(msg)
		if err != nil {
			log.Warn(ctx, "undecodable event frame", "error", err)
			return
		}
		reporter.Report(ev)
	})
	client.OnStateChange(func(state wsconn.State, err error) {
		log.Info(ctx, "event feed", "state", state, "error", err)
	})

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer client.Close()

	reporter.Start(ctx)
	<-ctx.Done()
	return nil
}
