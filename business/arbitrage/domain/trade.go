package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// TradeRequest describes one round trip: borrow Principal of Asset, sell it
// along PathOut through the router serving PoolA, buy it back along
// PathBack through the router serving PoolB.
type TradeRequest struct {
	Asset     common.Address
	PoolA     common.Address
	PoolB     common.Address
	PathOut   []common.Address
	PathBack  []common.Address
	Principal *big.Int
	Deadline  time.Time
}

// NewTradeRequest builds a request with its own copies of paths and
// principal.
func NewTradeRequest(asset, poolA, poolB common.Address, pathOut, pathBack []common.Address, principal *big.Int, deadline time.Time) TradeRequest {
	return TradeRequest{
		Asset:     asset,
		PoolA:     poolA,
		PoolB:     poolB,
		PathOut:   append([]common.Address(nil), pathOut...),
		PathBack:  append([]common.Address(nil), pathBack...),
		Principal: cloneInt(principal),
		Deadline:  deadline,
	}
}

// Clone returns a deep copy.
func (r TradeRequest) Clone() TradeRequest {
	return NewTradeRequest(r.Asset, r.PoolA, r.PoolB, r.PathOut, r.PathBack, r.Principal, r.Deadline)
}

// Validate checks the request's shape. It does not look at the clock.
func (r TradeRequest) Validate() error {
	if len(r.PathOut) < 2 || len(r.PathBack) < 2 {
		return apperror.New(apperror.CodeInvalidPath,
			apperror.WithContext(fmt.Sprintf("paths need at least 2 tokens, got %d and %d", len(r.PathOut), len(r.PathBack))))
	}
	if r.PathOut[0] != r.Asset {
		return apperror.New(apperror.CodeInvalidPath,
			apperror.WithContext("outbound path must start at the traded asset"))
	}
	if r.PathBack[len(r.PathBack)-1] != r.Asset {
		return apperror.New(apperror.CodeInvalidPath,
			apperror.WithContext("return path must end at the traded asset"))
	}
	if r.Principal == nil || r.Principal.Sign() <= 0 {
		return apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("principal must be positive"))
	}
	return nil
}

// Expired reports whether now is past the deadline.
func (r TradeRequest) Expired(now time.Time) bool {
	return now.After(r.Deadline)
}

// Intermediate is the token received from the outbound leg.
func (r TradeRequest) Intermediate() common.Address {
	return r.PathOut[len(r.PathOut)-1]
}
