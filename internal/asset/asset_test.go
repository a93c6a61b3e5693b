package asset_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

func TestAmount_Arithmetic(t *testing.T) {
	one := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	two := asset.NewAmount(asset.WETH, big.NewInt(2e18))

	sum, err := one.Add(two)
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if !sum.ToDecimal().Equal(decimal.NewFromInt(3)) {
		t.Errorf("Add() = %s, want 3", sum.ToDecimal())
	}

	if _, err := one.Sub(two); !errors.Is(err, asset.ErrNegativeResult) {
		t.Errorf("Sub() err = %v, want ErrNegativeResult", err)
	}

	usdc := asset.NewAmount(asset.USDC, big.NewInt(1e6))
	if _, err := one.Add(usdc); !errors.Is(err, asset.ErrAssetMismatch) {
		t.Errorf("Add(USDC) err = %v, want ErrAssetMismatch", err)
	}

	if got := one.String(); got != "1 WETH" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		name    string
		a       *asset.Asset
		in      string
		want    string
		wantErr bool
	}{
		{"WETH fraction", asset.WETH, "10.009", "10009000000000000000", false},
		{"USDC whole", asset.USDC, "2500", "2500000000", false},
		{"USDC too precise", asset.USDC, "1.1234567", "", true},
		{"negative", asset.WETH, "-1", "", true},
		{"garbage", asset.WETH, "ten", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := asset.ParseString(tt.a, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseString() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Raw().String() != tt.want {
				t.Errorf("ParseString() = %s, want %s", got.Raw(), tt.want)
			}
		})
	}
}

func TestUnits(t *testing.T) {
	raw, err := asset.ParseUnits("100", 9)
	if err != nil {
		t.Fatalf("ParseUnits() error: %v", err)
	}
	if raw.String() != "100000000000" {
		t.Errorf("ParseUnits(100 gwei) = %s", raw)
	}

	if got := asset.FormatUnits(big.NewInt(-51e15), 18).String(); got != "-0.051" {
		t.Errorf("FormatUnits() = %s, want -0.051", got)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := asset.DefaultRegistry()

	got, err := r.Resolve(asset.ChainIDEthereum, "weth")
	if err != nil || got != asset.AddrWETH {
		t.Errorf("Resolve(weth) = %s, %v", got.Hex(), err)
	}

	hex := "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852"
	got, err = r.Resolve(asset.ChainIDEthereum, hex)
	if err != nil || got != common.HexToAddress(hex) {
		t.Errorf("Resolve(hex) = %s, %v", got.Hex(), err)
	}

	if _, err := r.Resolve(asset.ChainIDEthereum, "NOPE"); err == nil {
		t.Error("Resolve(NOPE) succeeded")
	}

	dai, ok := r.GetToken(asset.ChainIDEthereum, asset.AddrDAI)
	if !ok || dai.Decimals() != 18 {
		t.Errorf("DAI lookup = %v, %v", dai, ok)
	}

	unknown := r.Describe(asset.ChainIDEthereum, common.HexToAddress("0x00000000000000000000000000000000000000aa"))
	if unknown.Decimals() != 18 {
		t.Errorf("Describe() decimals = %d", unknown.Decimals())
	}
}
