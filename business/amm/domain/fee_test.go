package domain

import (
	"math/big"
	"testing"
)

func TestAmountOut(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   *big.Int
		reserveIn  *big.Int
		reserveOut *big.Int
		want       int64
	}{
		{"zero input", big.NewInt(0), big.NewInt(1000), big.NewInt(1000), 0},
		{"nil input", nil, big.NewInt(1000), big.NewInt(1000), 0},
		{"zero reserve in", big.NewInt(10), big.NewInt(0), big.NewInt(1000), 0},
		{"zero reserve out", big.NewInt(10), big.NewInt(1000), big.NewInt(0), 0},
		// 10*997*1000 / (1000*1000 + 10*997) = 9970000/1009970 = 9.87...
		{"small trade", big.NewInt(10), big.NewInt(1000), big.NewInt(1000), 9},
		// 1000*997*5000 / (1000*1000 + 1000*997) = 4985000000/1997000 = 2496.24...
		{"large trade", big.NewInt(1000), big.NewInt(1000), big.NewInt(5000), 2496},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountOut(tt.amountIn, tt.reserveIn, tt.reserveOut)
			if got.Int64() != tt.want {
				t.Errorf("AmountOut() = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestAmountOut_BoundedAndMonotonic(t *testing.T) {
	reserveIn := new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil)
	reserveOut := new(big.Int).Mul(big.NewInt(2500), reserveIn)

	for _, in := range []int64{1, 7, 1e3, 1e9, 1e15, 1e18} {
		for mul := int64(1); mul <= 1e6; mul *= 10 {
			amountIn := new(big.Int).Mul(big.NewInt(in), big.NewInt(mul))
			out := AmountOut(amountIn, reserveIn, reserveOut)
			if out.Cmp(reserveOut) >= 0 {
				t.Fatalf("AmountOut(%s) = %s, not below reserveOut %s", amountIn, out, reserveOut)
			}
		}
	}

	// Strictly increasing inputs never decrease the output.
	prev := new(big.Int)
	amountIn := big.NewInt(1)
	for i := 0; i < 80; i++ {
		out := AmountOut(amountIn, reserveIn, reserveOut)
		if out.Cmp(prev) < 0 {
			t.Fatalf("AmountOut(%s) = %s < previous %s", amountIn, out, prev)
		}
		prev = out
		amountIn = new(big.Int).Mul(amountIn, big.NewInt(2))
	}
}

func TestFee(t *testing.T) {
	tests := []struct {
		name    string
		fee     Fee
		wantErr bool
		wantBps uint64
	}{
		{"default", DefaultFee, false, 30},
		{"sushi-like 0.25%", Fee{9975, 10000}, false, 25},
		{"zero denominator", Fee{1, 0}, true, 0},
		{"zero numerator", Fee{0, 1000}, true, 10000},
		{"over one", Fee{1001, 1000}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fee.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.fee.Bps() != tt.wantBps {
				t.Errorf("Bps() = %d, want %d", tt.fee.Bps(), tt.wantBps)
			}
		})
	}
}

func TestAmountsOut(t *testing.T) {
	hops := []Hop{
		{ReserveIn: big.NewInt(1000), ReserveOut: big.NewInt(5000)},
		{ReserveIn: big.NewInt(5000), ReserveOut: big.NewInt(1000)},
	}
	amounts := DefaultFee.AmountsOut(big.NewInt(100), hops)
	if len(amounts) != 3 {
		t.Fatalf("len = %d, want 3", len(amounts))
	}
	if amounts[0].Int64() != 100 {
		t.Errorf("amounts[0] = %s", amounts[0])
	}
	want1 := AmountOut(big.NewInt(100), big.NewInt(1000), big.NewInt(5000))
	if amounts[1].Cmp(want1) != 0 {
		t.Errorf("amounts[1] = %s, want %s", amounts[1], want1)
	}
	if amounts[2].Cmp(big.NewInt(100)) >= 0 {
		t.Errorf("round trip through equal pools should lose to fees, got %s", amounts[2])
	}
}
