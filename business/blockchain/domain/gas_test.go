package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func gwei(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e9)) }

func TestMaxFee(t *testing.T) {
	tests := []struct {
		name     string
		baseFee  *big.Int
		tip      *big.Int
		priority *big.Int
		want     *big.Int
	}{
		{"tip below cap", gwei(30), gwei(1), gwei(2), gwei(31)},
		{"tip above cap", gwei(30), gwei(5), gwei(2), gwei(32)},
		{"no tip", gwei(30), nil, gwei(2), gwei(32)},
		{"no base fee", nil, gwei(1), gwei(2), gwei(1)},
		{"nothing", nil, nil, nil, big.NewInt(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxFee(tt.baseFee, tt.tip, tt.priority); got.Cmp(tt.want) != 0 {
				t.Errorf("MaxFee() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGasPrice_Gwei(t *testing.T) {
	p := NewGasPrice(big.NewInt(25_500_000_000), time.Now())
	if got := p.Gwei(); !got.Equal(decimal.RequireFromString("25.5")) {
		t.Errorf("Gwei() = %s, want 25.5", got)
	}
	if got := GweiToWei(decimal.RequireFromString("2.5")); got.Cmp(big.NewInt(2_500_000_000)) != 0 {
		t.Errorf("GweiToWei() = %s", got)
	}
}
