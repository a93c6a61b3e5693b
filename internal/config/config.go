// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Lending   LendingConfig   `mapstructure:"lending"`
	Routers   []RouterConfig  `mapstructure:"routers"`
	Pools     []PoolConfig    `mapstructure:"pools"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	API       APIConfig       `mapstructure:"api"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	TUIMode bool `mapstructure:"-"` // Set at runtime, not from config file
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node configuration. When disabled the
// engine runs entirely on seeded state with a ticker block source.
type EthereumConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// EngineConfig identifies the accounts the engine acts for.
type EngineConfig struct {
	Owner          string `mapstructure:"owner"`
	Account        string `mapstructure:"account"`
	ReferenceAsset string `mapstructure:"reference_asset"`
}

func (c *EngineConfig) OwnerHex() common.Address   { return common.HexToAddress(c.Owner) }
func (c *EngineConfig) AccountHex() common.Address { return common.HexToAddress(c.Account) }

// RiskConfig holds the initial risk parameters. Amounts are decimal
// strings in whole units of the reference asset; fee prices are in gwei.
type RiskConfig struct {
	MinProfit                  string `mapstructure:"min_profit"`
	SlippageToleranceBps       uint64 `mapstructure:"slippage_tolerance_bps"`
	GasCostEstimateUnits       uint64 `mapstructure:"gas_cost_estimate_units"`
	MaxFeeUnitPriceGwei        string `mapstructure:"max_fee_unit_price_gwei"`
	LoanPremiumBps             uint64 `mapstructure:"loan_premium_bps"`
	PriceDeviationToleranceBps uint64 `mapstructure:"price_deviation_tolerance_bps"`
}

// LendingConfig configures the in-process flash-loan facility.
type LendingConfig struct {
	Address    string        `mapstructure:"address"`
	PremiumBps uint64        `mapstructure:"premium_bps"`
	Liquidity  []BalanceSeed `mapstructure:"liquidity"`
}

func (c *LendingConfig) AddressHex() common.Address { return common.HexToAddress(c.Address) }

// BalanceSeed is an initial token balance, in whole units.
type BalanceSeed struct {
	Token  string `mapstructure:"token"`
	Amount string `mapstructure:"amount"`
}

// RouterConfig declares a router and the fee it charges on execution.
type RouterConfig struct {
	Name           string `mapstructure:"name"`
	Address        string `mapstructure:"address"`
	FeeNumerator   uint64 `mapstructure:"fee_numerator"`
	FeeDenominator uint64 `mapstructure:"fee_denominator"`
}

func (c *RouterConfig) AddressHex() common.Address { return common.HexToAddress(c.Address) }

// PoolConfig declares a constant-product pair served by a router.
// Reserves seed the pool; when Mirror is set they are refreshed from the
// mainnet pair at the same address.
type PoolConfig struct {
	Name     string `mapstructure:"name"`
	Address  string `mapstructure:"address"`
	Router   string `mapstructure:"router"`
	Token0   string `mapstructure:"token0"`
	Token1   string `mapstructure:"token1"`
	Reserve0 string `mapstructure:"reserve0"`
	Reserve1 string `mapstructure:"reserve1"`
	Mirror   bool   `mapstructure:"mirror"`
}

func (c *PoolConfig) AddressHex() common.Address { return common.HexToAddress(c.Address) }

// OracleConfig configures the two feeds behind the oracle gateway.
type OracleConfig struct {
	Reference FeedConfig    `mapstructure:"reference"`
	FeeUnit   FeedConfig    `mapstructure:"fee_unit"`
	MaxAge    time.Duration `mapstructure:"max_age"`
}

// FeedConfig selects a feed source. Source is "static", "chainlink" or
// "gas" (fee-unit only).
type FeedConfig struct {
	Source   string `mapstructure:"source"`
	Address  string `mapstructure:"address"`
	Value    string `mapstructure:"value"`
	Decimals uint8  `mapstructure:"decimals"`
}

func (c *FeedConfig) AddressHex() common.Address { return common.HexToAddress(c.Address) }

// ValueDecimal returns the static feed value.
func (c *FeedConfig) ValueDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(c.Value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// AgentConfig configures the block-driven agent loop.
type AgentConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	Pairs               []PairConfig  `mapstructure:"pairs"`
	LoanAmounts         []string      `mapstructure:"loan_amounts"`
	MinProfit           string        `mapstructure:"min_profit"`
	GasEstimate         uint64        `mapstructure:"gas_estimate"`
	GasBuffer           float64       `mapstructure:"gas_buffer"`
	FallbackGasCost     string        `mapstructure:"fallback_gas_cost"`
	MaxGasPriceGwei     string        `mapstructure:"max_gas_price_gwei"`
	BasePriorityFeeGwei string        `mapstructure:"base_priority_fee_gwei"`
	DeadlineDelta       time.Duration `mapstructure:"deadline_delta"`
	SimulationsPerSec   float64       `mapstructure:"simulations_per_sec"`
	SyncReserves        bool          `mapstructure:"sync_reserves"`
	InitialBackoff      time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff          time.Duration `mapstructure:"max_backoff"`
}

// PairConfig is one round trip the agent evaluates.
type PairConfig struct {
	Name     string   `mapstructure:"name"`
	PoolA    string   `mapstructure:"pool_a"`
	PoolB    string   `mapstructure:"pool_b"`
	PathOut  []string `mapstructure:"path_out"`
	PathBack []string `mapstructure:"path_back"`
}

// AlertingConfig configures Telegram delivery.
type AlertingConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// APIConfig configures the operator HTTP API.
type APIConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Port        int    `mapstructure:"port"`
	OwnerToken  string `mapstructure:"owner_token"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

// HealthConfig configures the health server.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	MetricProvider string `mapstructure:"metric_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("FLASHARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FLASHARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FLASHARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FLASHARB_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.enabled", "FLASHARB_ETH_ENABLED")
	v.BindEnv("ethereum.websocket_url", "FLASHARB_ETH_WS_URL", "WS_URL")
	v.BindEnv("ethereum.http_url", "FLASHARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "FLASHARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Engine
	v.BindEnv("engine.owner", "FLASHARB_OWNER", "WALLET_ADDRESS")
	v.BindEnv("engine.account", "FLASHARB_ENGINE_ACCOUNT", "CONTRACT_ADDRESS")

	// Alerting
	v.BindEnv("alerting.enabled", "FLASHARB_ALERTING_ENABLED")
	v.BindEnv("alerting.bot_token", "FLASHARB_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("alerting.chat_id", "FLASHARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	// API
	v.BindEnv("api.owner_token", "FLASHARB_API_TOKEN")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FLASHARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FLASHARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FLASHARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "FLASHARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flasharb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.enabled", false)
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.poll_interval", "12s")
	v.SetDefault("ethereum.reconnect_delay", "5s")

	// Engine defaults: sandbox identities and mainnet WETH as the reference asset
	v.SetDefault("engine.owner", "0x000000000000000000000000000000000000a11c")
	v.SetDefault("engine.account", "0x00000000000000000000000000000000000f1a54")
	v.SetDefault("engine.reference_asset", "WETH")

	// Risk defaults
	v.SetDefault("risk.min_profit", "0.01")
	v.SetDefault("risk.slippage_tolerance_bps", 50)
	v.SetDefault("risk.gas_cost_estimate_units", 350000)
	v.SetDefault("risk.max_fee_unit_price_gwei", "100")
	v.SetDefault("risk.loan_premium_bps", 9)
	v.SetDefault("risk.price_deviation_tolerance_bps", 300)

	// Lending defaults
	v.SetDefault("lending.address", "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2")
	v.SetDefault("lending.premium_bps", 9)
	v.SetDefault("lending.liquidity", []map[string]any{
		{"token": "WETH", "amount": "100000"},
		{"token": "USDC", "amount": "100000000"},
		{"token": "USDT", "amount": "100000000"},
	})

	// Router defaults (mainnet V2 routers, 0.3%)
	v.SetDefault("routers", []map[string]any{
		{"name": "uniswap", "address": "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", "fee_numerator": 997, "fee_denominator": 1000},
		{"name": "sushiswap", "address": "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F", "fee_numerator": 997, "fee_denominator": 1000},
	})

	// Pool defaults: the mainnet pairs the agent watches, seeded with
	// sandbox reserves. Set mirror to refresh them from chain.
	v.SetDefault("pools", []map[string]any{
		{"name": "uniswap-weth-usdt", "address": "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852", "router": "uniswap",
			"token0": "WETH", "token1": "USDT", "reserve0": "20000", "reserve1": "50000000"},
		{"name": "sushiswap-weth-usdt", "address": "0x06da0fd433C1A5d7a4faa01111c044910A184553", "router": "sushiswap",
			"token0": "WETH", "token1": "USDT", "reserve0": "4000", "reserve1": "10200000"},
		{"name": "uniswap-usdc-weth", "address": "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc", "router": "uniswap",
			"token0": "USDC", "token1": "WETH", "reserve0": "60000000", "reserve1": "24000"},
		{"name": "sushiswap-usdc-weth", "address": "0x397FF1542f962076d0BFE58eA045FfA2d347ACa0", "router": "sushiswap",
			"token0": "USDC", "token1": "WETH", "reserve0": "12000000", "reserve1": "4800"},
	})

	// Oracle defaults
	v.SetDefault("oracle.reference.source", "static")
	v.SetDefault("oracle.reference.value", "1")
	v.SetDefault("oracle.reference.decimals", 18)
	v.SetDefault("oracle.fee_unit.source", "static")
	v.SetDefault("oracle.fee_unit.value", "20")
	v.SetDefault("oracle.fee_unit.decimals", 0)
	v.SetDefault("oracle.max_age", "0s")

	// Agent defaults
	v.SetDefault("agent.enabled", true)
	v.SetDefault("agent.poll_interval", "1s")
	v.SetDefault("agent.pairs", []map[string]any{
		{"name": "WETH/USDT", "pool_a": "0x06da0fd433C1A5d7a4faa01111c044910A184553", "pool_b": "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852",
			"path_out": []string{"WETH", "USDT"}, "path_back": []string{"USDT", "WETH"}},
		{"name": "USDC/WETH", "pool_a": "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc", "pool_b": "0x397FF1542f962076d0BFE58eA045FfA2d347ACa0",
			"path_out": []string{"WETH", "USDC"}, "path_back": []string{"USDC", "WETH"}},
	})
	v.SetDefault("agent.loan_amounts", []string{"1", "10"})
	v.SetDefault("agent.min_profit", "0.000001")
	v.SetDefault("agent.gas_estimate", 350000)
	v.SetDefault("agent.gas_buffer", 1.2)
	v.SetDefault("agent.fallback_gas_cost", "0.01")
	v.SetDefault("agent.max_gas_price_gwei", "100")
	v.SetDefault("agent.base_priority_fee_gwei", "2")
	v.SetDefault("agent.deadline_delta", "300s")
	v.SetDefault("agent.simulations_per_sec", 1.0)
	v.SetDefault("agent.sync_reserves", true)
	v.SetDefault("agent.initial_backoff", "10s")
	v.SetDefault("agent.max_backoff", "600s")

	// Alerting defaults
	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.base_url", "https://api.telegram.org")
	v.SetDefault("alerting.timeout", "10s")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", "*")

	// Health defaults
	v.SetDefault("health.port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flasharb")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.metric_provider", "prometheus")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.Enabled && c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required when ethereum is enabled")
	}
	for _, addr := range []struct{ key, val string }{
		{"engine.owner", c.Engine.Owner},
		{"engine.account", c.Engine.Account},
		{"lending.address", c.Lending.Address},
	} {
		if !common.IsHexAddress(addr.val) {
			return fmt.Errorf("invalid %s: %q", addr.key, addr.val)
		}
	}
	if c.Engine.OwnerHex() == c.Engine.AccountHex() {
		return fmt.Errorf("engine.owner and engine.account must differ")
	}
	if c.Engine.ReferenceAsset == "" {
		return fmt.Errorf("engine.reference_asset is required")
	}
	if _, err := decimal.NewFromString(c.Risk.MinProfit); err != nil {
		return fmt.Errorf("invalid risk.min_profit: %w", err)
	}
	if _, err := decimal.NewFromString(c.Risk.MaxFeeUnitPriceGwei); err != nil {
		return fmt.Errorf("invalid risk.max_fee_unit_price_gwei: %w", err)
	}
	// The engine encodes the premium it expects into the loan context and
	// the callback rejects any other amount.
	if c.Lending.PremiumBps != c.Risk.LoanPremiumBps {
		return fmt.Errorf("lending.premium_bps (%d) must equal risk.loan_premium_bps (%d)",
			c.Lending.PremiumBps, c.Risk.LoanPremiumBps)
	}

	routers := make(map[string]bool, len(c.Routers))
	for _, r := range c.Routers {
		if !common.IsHexAddress(r.Address) {
			return fmt.Errorf("invalid router %q address: %q", r.Name, r.Address)
		}
		if r.FeeDenominator == 0 || r.FeeNumerator > r.FeeDenominator {
			return fmt.Errorf("router %q: fee must satisfy 0 <= numerator <= denominator, denominator > 0", r.Name)
		}
		routers[r.Name] = true
	}
	for _, p := range c.Pools {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("invalid pool %q address: %q", p.Name, p.Address)
		}
		if !routers[p.Router] {
			return fmt.Errorf("pool %q references unknown router %q", p.Name, p.Router)
		}
		if p.Mirror && !c.Ethereum.Enabled {
			return fmt.Errorf("pool %q mirrors mainnet but ethereum is disabled", p.Name)
		}
	}

	for _, f := range []struct {
		key string
		cfg FeedConfig
	}{{"oracle.reference", c.Oracle.Reference}, {"oracle.fee_unit", c.Oracle.FeeUnit}} {
		switch f.cfg.Source {
		case "static":
		case "chainlink":
			if !c.Ethereum.Enabled || !common.IsHexAddress(f.cfg.Address) {
				return fmt.Errorf("%s: chainlink needs ethereum enabled and a feed address", f.key)
			}
		case "gas":
			if f.key != "oracle.fee_unit" || !c.Ethereum.Enabled {
				return fmt.Errorf("%s: gas source is only valid for the fee-unit feed with ethereum enabled", f.key)
			}
		default:
			return fmt.Errorf("%s: unknown source %q", f.key, f.cfg.Source)
		}
	}

	if c.Agent.Enabled && c.Agent.GasBuffer < 1 {
		return fmt.Errorf("agent.gas_buffer must be >= 1")
	}
	if c.Alerting.Enabled && (c.Alerting.BotToken == "" || c.Alerting.ChatID == "") {
		return fmt.Errorf("alerting requires bot_token and chat_id")
	}
	return nil
}
