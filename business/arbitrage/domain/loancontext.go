package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// FlashLoanContext travels through the lending facility as opaque bytes
// and is decoded and validated when the facility calls back.
type FlashLoanContext struct {
	Request TradeRequest
	Premium *big.Int
}

var loanContextArgs = func() abi.Arguments {
	mustType := func(t string) abi.Type {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		return typ
	}
	address := mustType("address")
	addresses := mustType("address[]")
	uint256 := mustType("uint256")
	return abi.Arguments{
		{Name: "asset", Type: address},
		{Name: "poolA", Type: address},
		{Name: "poolB", Type: address},
		{Name: "pathOut", Type: addresses},
		{Name: "pathBack", Type: addresses},
		{Name: "principal", Type: uint256},
		{Name: "premium", Type: uint256},
		{Name: "deadline", Type: mustType("uint64")},
	}
}()

// Encode ABI-encodes the context.
func (c FlashLoanContext) Encode() ([]byte, error) {
	if c.Request.Principal == nil || c.Premium == nil {
		return nil, invalidContext("principal and premium are required")
	}
	r := c.Request
	return loanContextArgs.Pack(
		r.Asset, r.PoolA, r.PoolB, r.PathOut, r.PathBack,
		r.Principal, c.Premium, uint64(r.Deadline.Unix()),
	)
}

// DecodeFlashLoanContext reverses Encode and validates the result.
func DecodeFlashLoanContext(data []byte) (FlashLoanContext, error) {
	vals, err := loanContextArgs.Unpack(data)
	if err != nil {
		return FlashLoanContext{}, apperror.New(apperror.CodeInvalidLoanContext, apperror.WithCause(err))
	}
	if len(vals) != len(loanContextArgs) {
		return FlashLoanContext{}, invalidContext(fmt.Sprintf("decoded %d fields", len(vals)))
	}

	asset, ok1 := vals[0].(common.Address)
	poolA, ok2 := vals[1].(common.Address)
	poolB, ok3 := vals[2].(common.Address)
	pathOut, ok4 := vals[3].([]common.Address)
	pathBack, ok5 := vals[4].([]common.Address)
	principal, ok6 := vals[5].(*big.Int)
	premium, ok7 := vals[6].(*big.Int)
	deadline, ok8 := vals[7].(uint64)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8) {
		return FlashLoanContext{}, invalidContext("unexpected field types")
	}

	c := FlashLoanContext{
		Request: NewTradeRequest(asset, poolA, poolB, pathOut, pathBack, principal,
			time.Unix(int64(deadline), 0)),
		Premium: new(big.Int).Set(premium),
	}
	if err := c.Validate(); err != nil {
		return FlashLoanContext{}, err
	}
	return c, nil
}

// Validate checks each field of a decoded context.
func (c FlashLoanContext) Validate() error {
	if err := c.Request.Validate(); err != nil {
		return apperror.New(apperror.CodeInvalidLoanContext, apperror.WithCause(err))
	}
	if c.Premium == nil || c.Premium.Sign() < 0 {
		return invalidContext("premium must be non-negative")
	}
	if c.Request.PoolA == (common.Address{}) || c.Request.PoolB == (common.Address{}) {
		return invalidContext("pool addresses are required")
	}
	return nil
}

// Owed is principal plus premium.
func (c FlashLoanContext) Owed() *big.Int {
	return new(big.Int).Add(c.Request.Principal, c.Premium)
}

func invalidContext(msg string) error {
	return apperror.New(apperror.CodeInvalidLoanContext, apperror.WithContext(msg))
}
