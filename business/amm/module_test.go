package amm

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/ledger"
)

func testConfig() *config.Config {
	return &config.Config{
		Ethereum: config.EthereumConfig{ChainID: asset.ChainIDEthereum},
		Routers: []config.RouterConfig{
			{Name: "uniswap", Address: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", FeeNumerator: 997, FeeDenominator: 1000},
			{Name: "sushiswap", Address: "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F", FeeNumerator: 9975, FeeDenominator: 10000},
		},
		Pools: []config.PoolConfig{
			{Name: "uni", Address: "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852", Router: "uniswap",
				Token0: "WETH", Token1: "USDT", Reserve0: "1000", Reserve1: "2500000"},
			{Name: "sushi", Address: "0x06da0fd433C1A5d7a4faa01111c044910A184553", Router: "sushiswap",
				Token0: "WETH", Token1: "USDT"},
		},
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg := testConfig()
	reg, err := BuildRegistry(cfg, asset.DefaultRegistry())
	if err != nil {
		t.Fatalf("BuildRegistry() error: %v", err)
	}

	if got := len(reg.Pairs()); got != 2 {
		t.Fatalf("pairs = %d, want 2", got)
	}
	sushi := common.HexToAddress(cfg.Pools[1].Address)
	p, err := reg.Pair(sushi)
	if err != nil {
		t.Fatal(err)
	}
	if p.Fee().Numerator != 9975 {
		t.Errorf("sushi pair fee = %s, want router fee", p.Fee())
	}
	r, err := reg.RouterFor(sushi)
	if err != nil || r.Name() != "sushiswap" {
		t.Errorf("RouterFor() = %v, %v", r, err)
	}
	if _, err := reg.Pair(common.HexToAddress("0x01")); err == nil {
		t.Error("unknown pool resolved")
	}
}

func TestBuildRegistry_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad fee", func(c *config.Config) { c.Routers[0].FeeNumerator = 0 }},
		{"unknown router", func(c *config.Config) { c.Pools[0].Router = "curve" }},
		{"unknown token", func(c *config.Config) { c.Pools[0].Token1 = "DOGE" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			if _, err := BuildRegistry(cfg, asset.DefaultRegistry()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSeedReserves(t *testing.T) {
	cfg := testConfig()
	l := ledger.New()
	if err := SeedReserves(context.Background(), l, cfg, asset.DefaultRegistry()); err != nil {
		t.Fatalf("SeedReserves() error: %v", err)
	}

	uni := common.HexToAddress(cfg.Pools[0].Address)
	wantWETH := new(big.Int).Mul(big.NewInt(1000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	if got := l.BalanceOf(asset.AddrWETH, uni); got.Cmp(wantWETH) != 0 {
		t.Errorf("WETH reserve = %s, want %s", got, wantWETH)
	}
	if got := l.BalanceOf(asset.AddrUSDT, uni); got.Cmp(big.NewInt(2_500_000_000_000)) != 0 {
		t.Errorf("USDT reserve = %s, want 2.5e12 (6 decimals)", got)
	}
	sushi := common.HexToAddress(cfg.Pools[1].Address)
	if got := l.BalanceOf(asset.AddrWETH, sushi); got.Sign() != 0 {
		t.Errorf("unseeded pool has %s", got)
	}
}
