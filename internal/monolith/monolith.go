// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/health"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	// EthClient is nil when ethereum is disabled.
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Health() *health.Server
	Ledger() *ledger.Ledger
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Global service names shared by every module.
const (
	ServiceConfig        = "config"
	ServiceLogger        = "logger"
	ServiceEthClient     = "ethClient"
	ServiceAssetRegistry = "assetRegistry"
	ServiceHealth        = "health"
	ServiceLedger        = "ledger"
)

// App implements Monolith.
type App struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	assetRegistry *asset.Registry
	health        *health.Server
	ledger        *ledger.Ledger
	container     di.Container
}

// New creates the container and registers the global services. The
// Ethereum client is dialled only when ethereum is enabled.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, hs *health.Server) (*App, error) {
	var ethClient *ethclient.Client
	if cfg.Ethereum.Enabled {
		c, err := ethclient.DialContext(ctx, cfg.Ethereum.HTTPURL)
		if err != nil {
			return nil, fmt.Errorf("dial ethereum: %w", err)
		}
		ethClient = c
	}

	if hs == nil {
		hs = health.NewServer(cfg.Health.Port, "")
	}

	assetRegistry := asset.DefaultRegistry()
	led := ledger.New()
	container := di.NewContainer()

	container.Register(ServiceConfig, cfg)
	container.Register(ServiceLogger, log)
	container.Register(ServiceEthClient, ethClient)
	container.Register(ServiceAssetRegistry, assetRegistry)
	container.Register(ServiceHealth, hs)
	container.Register(ServiceLedger, led)

	return &App{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		assetRegistry: assetRegistry,
		health:        hs,
		ledger:        led,
		container:     container,
	}, nil
}

func (a *App) Config() *config.Config         { return a.config }
func (a *App) Logger() logger.LoggerInterface { return a.logger }
func (a *App) EthClient() *ethclient.Client   { return a.ethClient }
func (a *App) AssetRegistry() *asset.Registry { return a.assetRegistry }
func (a *App) Health() *health.Server         { return a.health }
func (a *App) Ledger() *ledger.Ledger         { return a.ledger }
func (a *App) Services() di.ServiceRegistry   { return a.container }

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules in order.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *App) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}

// ConfigFrom resolves the global config inside a DI factory.
func ConfigFrom(sr di.ServiceRegistry) *config.Config { return sr.Get(ServiceConfig).(*config.Config) }
func LoggerFrom(sr di.ServiceRegistry) logger.LoggerInterface {
	return sr.Get(ServiceLogger).(logger.LoggerInterface)
}
func EthClientFrom(sr di.ServiceRegistry) *ethclient.Client {
	return sr.Get(ServiceEthClient).(*ethclient.Client)
}
func AssetsFrom(sr di.ServiceRegistry) *asset.Registry {
	return sr.Get(ServiceAssetRegistry).(*asset.Registry)
}
func LedgerFrom(sr di.ServiceRegistry) *ledger.Ledger { return sr.Get(ServiceLedger).(*ledger.Ledger) }
