// Package app implements the flash-loan lending facility.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/ledger"
)

// LoanCallback is what the facility reports to the receiver after it has
// transferred the principal.
type LoanCallback struct {
	Caller    common.Address
	Asset     common.Address
	Amount    *big.Int
	Premium   *big.Int
	Initiator common.Address
	Data      []byte
}

// Owed is Amount + Premium.
func (c LoanCallback) Owed() *big.Int {
	return new(big.Int).Add(c.Amount, c.Premium)
}

// Receiver is called back inside the loan's unit of execution. Returning
// false or an error undoes the loan.
type Receiver interface {
	Address() common.Address
	OnLoanCallback(ctx context.Context, tx ledger.Tx, cb LoanCallback) (bool, error)
}

// Lender grants flash loans. RequestLoan runs inside the caller's unit.
type Lender interface {
	Address() common.Address
	PremiumBps() uint64
	RequestLoan(ctx context.Context, tx ledger.Tx, initiator common.Address, receiver Receiver, asset common.Address, amount *big.Int, data []byte) error
}
