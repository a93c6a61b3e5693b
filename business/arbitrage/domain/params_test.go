package domain

import (
	"math/big"
	"testing"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

func validParams() RiskParameters {
	return RiskParameters{
		MinProfit:                  big.NewInt(10_000_000_000_000_000),
		SlippageToleranceBps:       50,
		GasCostEstimateUnits:       200_000,
		MaxAcceptableFeeUnitPrice:  big.NewInt(100_000_000_000),
		LoanPremiumBps:             9,
		PriceDeviationToleranceBps: 300,
	}
}

func TestRiskParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RiskParameters)
		wantErr bool
	}{
		{"valid", func(p *RiskParameters) {}, false},
		{"slippage at ceiling", func(p *RiskParameters) { p.SlippageToleranceBps = 500 }, false},
		{"slippage 501", func(p *RiskParameters) { p.SlippageToleranceBps = 501 }, true},
		{"premium at ceiling", func(p *RiskParameters) { p.LoanPremiumBps = 50 }, false},
		{"premium 51", func(p *RiskParameters) { p.LoanPremiumBps = 51 }, true},
		{"deviation 501", func(p *RiskParameters) { p.PriceDeviationToleranceBps = 501 }, true},
		{"fee price at ceiling", func(p *RiskParameters) { p.MaxAcceptableFeeUnitPrice = big.NewInt(500_000_000_000) }, false},
		{"fee price above ceiling", func(p *RiskParameters) { p.MaxAcceptableFeeUnitPrice = big.NewInt(500_000_000_001) }, true},
		{"nil fee price", func(p *RiskParameters) { p.MaxAcceptableFeeUnitPrice = nil }, true},
		{"negative min profit", func(p *RiskParameters) { p.MinProfit = big.NewInt(-1) }, true},
		{"nil min profit", func(p *RiskParameters) { p.MinProfit = nil }, true},
		{"zero min profit", func(p *RiskParameters) { p.MinProfit = big.NewInt(0) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && apperror.GetCode(err) != apperror.CodeParameterOutOfBounds {
				t.Errorf("code = %s", apperror.GetCode(err))
			}
		})
	}
}

func TestRiskParameters_CloneIsDeep(t *testing.T) {
	p := validParams()
	c := p.Clone()
	c.MinProfit.SetInt64(1)
	c.MaxAcceptableFeeUnitPrice.SetInt64(1)
	if p.MinProfit.Int64() == 1 || p.MaxAcceptableFeeUnitPrice.Int64() == 1 {
		t.Error("Clone shares big.Int values")
	}
}

func TestRiskParameters_Arithmetic(t *testing.T) {
	p := validParams()
	ten := new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))

	if got := p.Premium(ten); got.String() != "9000000000000000" {
		t.Errorf("Premium(10e18) = %s, want 0.009e18", got)
	}
	if got := p.MinOut(big.NewInt(10_000)); got.Int64() != 9_950 {
		t.Errorf("MinOut(10000) = %s, want 9950", got)
	}
	if got := MulBps(nil, 10); got.Sign() != 0 {
		t.Errorf("MulBps(nil) = %s", got)
	}
}
