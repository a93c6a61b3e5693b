package gasfeed

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
)

type fakeOracle struct {
	price *domain.GasPrice
	err   error
}

func (f *fakeOracle) GetGasPrice(context.Context) (*domain.GasPrice, error) {
	return f.price, f.err
}

func (f *fakeOracle) GetGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeOracle) GetFeeQuote(context.Context) (*domain.FeeQuote, error) {
	return nil, errors.New("unused")
}

func TestFeed_LatestValue(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	f := New(&fakeOracle{price: domain.NewGasPrice(big.NewInt(25_000_000_000), at)})

	r, err := f.LatestValue(context.Background())
	if err != nil {
		t.Fatalf("LatestValue() error: %v", err)
	}
	if r.Value.Int64() != 25_000_000_000 || r.Decimals != 9 || !r.UpdatedAt.Equal(at) {
		t.Errorf("LatestValue() = %+v", r)
	}
}

func TestFeed_PropagatesError(t *testing.T) {
	boom := errors.New("rpc down")
	f := New(&fakeOracle{err: boom})
	if _, err := f.LatestValue(context.Background()); !errors.Is(err, boom) {
		t.Errorf("LatestValue() error = %v, want %v", err, boom)
	}
}
