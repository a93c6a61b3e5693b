package static

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFeed_LatestValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals uint8
		want     string
	}{
		{"whole", "20", 0, "20"},
		{"fraction", "2500.5", 8, "250050000000"},
		{"truncates", "1.123", 2, "112"},
		{"zero", "0", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New("x", decimal.RequireFromString(tt.value), tt.decimals)
			r, err := f.LatestValue(context.Background())
			if err != nil {
				t.Fatalf("LatestValue() error: %v", err)
			}
			if r.Value.String() != tt.want || r.Decimals != tt.decimals {
				t.Errorf("LatestValue() = %s/%d, want %s/%d", r.Value, r.Decimals, tt.want, tt.decimals)
			}
		})
	}
}

func TestFeed_SetRawCopies(t *testing.T) {
	f := New("x", decimal.NewFromInt(1), 0)
	v := big.NewInt(42)
	f.SetRaw(v, 3)
	v.SetInt64(7)

	r, _ := f.LatestValue(context.Background())
	if r.Value.Int64() != 42 || r.Decimals != 3 {
		t.Errorf("LatestValue() = %s/%d, want 42/3", r.Value, r.Decimals)
	}
	r.Value.SetInt64(0)
	if r2, _ := f.LatestValue(context.Background()); r2.Value.Int64() != 42 {
		t.Error("reading aliases feed state")
	}
	if f.Name() != "static:x" {
		t.Errorf("Name() = %q", f.Name())
	}
}
