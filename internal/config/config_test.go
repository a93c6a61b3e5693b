package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.App.Name != "flasharb" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.Risk.SlippageToleranceBps != 50 || cfg.Risk.LoanPremiumBps != 9 {
		t.Errorf("risk defaults = %+v", cfg.Risk)
	}
	if len(cfg.Routers) != 2 || cfg.Routers[0].FeeNumerator != 997 {
		t.Errorf("router defaults = %+v", cfg.Routers)
	}
	if got := cfg.Agent.LoanAmounts; len(got) != 2 || got[0] != "1" || got[1] != "10" {
		t.Errorf("Agent.LoanAmounts = %v", got)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flasharb.yaml")
	yaml := `
app:
  log_level: debug
pools:
  - name: uni-weth-usdt
    address: "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852"
    router: uniswap
    token0: WETH
    token1: USDT
    reserve0: "1000"
    reserve1: "2500000"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FLASHARB_API_TOKEN", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.App.LogLevel)
	}
	if len(cfg.Pools) != 1 || cfg.Pools[0].Token1 != "USDT" {
		t.Errorf("Pools = %+v", cfg.Pools)
	}
	if cfg.API.OwnerToken != "s3cret" {
		t.Errorf("OwnerToken = %q", cfg.API.OwnerToken)
	}
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Chdir(t.TempDir())
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"owner equals account", func(c *Config) { c.Engine.Account = c.Engine.Owner }, "must differ"},
		{"bad router fee", func(c *Config) { c.Routers[0].FeeDenominator = 0 }, "fee must satisfy"},
		{"pool unknown router", func(c *Config) {
			c.Pools = []PoolConfig{{Name: "p", Address: "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852", Router: "curve"}}
		}, "unknown router"},
		{"mirror without ethereum", func(c *Config) {
			c.Pools = []PoolConfig{{Name: "p", Address: "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852", Router: "uniswap", Mirror: true}}
		}, "ethereum is disabled"},
		{"chainlink without ethereum", func(c *Config) { c.Oracle.Reference.Source = "chainlink" }, "chainlink"},
		{"gas source for reference", func(c *Config) {
			c.Ethereum.Enabled = true
			c.Ethereum.HTTPURL = "http://localhost:8545"
			c.Oracle.Reference.Source = "gas"
		}, "gas source"},
		{"alerting without token", func(c *Config) { c.Alerting.Enabled = true }, "bot_token"},
		{"premium disagrees with facility", func(c *Config) { c.Lending.PremiumBps = 5 }, "must equal risk.loan_premium_bps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errSub)
			}
		})
	}
}
