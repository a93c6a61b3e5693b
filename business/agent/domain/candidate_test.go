package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestGasCost(t *testing.T) {
	fallback := big.NewInt(10_000_000_000_000_000)

	tests := []struct {
		name   string
		units  uint64
		buffer string
		price  *big.Int
		want   *big.Int
	}{
		{"buffered", 350000, "1.2", gwei(20), big.NewInt(8_400_000_000_000_000)},
		{"no buffer", 100000, "1", gwei(1), big.NewInt(100_000_000_000_000)},
		{"truncates", 3, "1.5", big.NewInt(1), big.NewInt(4)},
		{"missing price", 350000, "1.2", nil, fallback},
		{"zero price", 350000, "1.2", big.NewInt(0), fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GasCost(tt.units, decimal.RequireFromString(tt.buffer), tt.price, fallback)
			if got.Cmp(tt.want) != 0 {
				t.Errorf("GasCost() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSelector(t *testing.T) {
	cand := func(name string, profit, net int64) Candidate {
		return Candidate{Pair: Pair{Name: name}, EstimatedProfit: big.NewInt(profit), Net: big.NewInt(net)}
	}

	s := NewSelector(big.NewInt(100))
	if s.Best() != nil {
		t.Fatal("empty selector has a best candidate")
	}

	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{"below min profit", cand("a", 99, 50), false},
		{"net not positive", cand("b", 500, 0), false},
		{"first qualifying", cand("c", 200, 10), true},
		{"worse net", cand("d", 900, 5), false},
		{"equal net keeps first", cand("e", 300, 10), false},
		{"better net", cand("f", 150, 11), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Offer(tt.c); got != tt.want {
				t.Errorf("Offer() = %t, want %t", got, tt.want)
			}
		})
	}
	if best := s.Best(); best == nil || best.Pair.Name != "f" {
		t.Errorf("Best() = %+v, want f", best)
	}
}

func TestFeeCeiling(t *testing.T) {
	ceiling := FeeCeiling{PriorityCap: gwei(2), Max: gwei(100)}

	tests := []struct {
		name    string
		baseFee *big.Int
		tip     *big.Int
		wantFee *big.Int
		ok      bool
	}{
		{"tip below cap", gwei(50), gwei(1), gwei(51), true},
		{"tip capped", gwei(50), gwei(9), gwei(52), true},
		{"no tip uses cap", gwei(30), nil, gwei(32), true},
		{"at ceiling", gwei(98), gwei(3), gwei(100), true},
		{"above ceiling", gwei(99), gwei(3), gwei(101), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, ok := ceiling.Check(tt.baseFee, tt.tip)
			if ok != tt.ok || fee.Cmp(tt.wantFee) != 0 {
				t.Errorf("Check() = %s, %t; want %s, %t", fee, ok, tt.wantFee, tt.ok)
			}
		})
	}
}
