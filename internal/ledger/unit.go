package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// unit is the Tx handed to a function running inside Atomically. Writes
// are staged in the overlay maps and only reach the ledger on commit.
type unit struct {
	name       string
	base       *state
	startedAt  time.Time
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
	closed     bool
}

func newUnit(name string, base *state, now time.Time) *unit {
	return &unit{
		name:       name,
		base:       base,
		startedAt:  now,
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

func (u *unit) Name() string   { return u.name }
func (u *unit) Now() time.Time { return u.startedAt }

func (u *unit) BalanceOf(token, holder common.Address) *big.Int {
	if v, ok := u.balances[balanceKey{token, holder}]; ok {
		return new(big.Int).Set(v)
	}
	return u.base.BalanceOf(token, holder)
}

func (u *unit) Allowance(token, owner, spender common.Address) *big.Int {
	if v, ok := u.allowances[allowanceKey{token, owner, spender}]; ok {
		return new(big.Int).Set(v)
	}
	return u.base.Allowance(token, owner, spender)
}

func (u *unit) Transfer(token, from, to common.Address, amount *big.Int) error {
	if err := u.usable(amount); err != nil {
		return err
	}
	return u.move(token, from, to, amount)
}

func (u *unit) Approve(token, owner, spender common.Address, amount *big.Int) error {
	if err := u.usable(amount); err != nil {
		return err
	}
	u.allowances[allowanceKey{token, owner, spender}] = new(big.Int).Set(amount)
	return nil
}

func (u *unit) TransferFrom(token, spender, from, to common.Address, amount *big.Int) error {
	if err := u.usable(amount); err != nil {
		return err
	}

	allowed := u.Allowance(token, from, spender)
	if allowed.Cmp(amount) < 0 {
		return apperror.New(apperror.CodeInsufficientAllowance,
			apperror.WithContext(fmt.Sprintf("token=%s owner=%s spender=%s allowed=%s wanted=%s",
				token.Hex(), from.Hex(), spender.Hex(), allowed, amount)))
	}

	if err := u.move(token, from, to, amount); err != nil {
		return err
	}
	u.allowances[allowanceKey{token, from, spender}] = allowed.Sub(allowed, amount)
	return nil
}

func (u *unit) Mint(token, to common.Address, amount *big.Int) error {
	if err := u.usable(amount); err != nil {
		return err
	}
	bal := u.BalanceOf(token, to)
	u.balances[balanceKey{token, to}] = bal.Add(bal, amount)
	return nil
}

func (u *unit) Burn(token, from common.Address, amount *big.Int) error {
	if err := u.usable(amount); err != nil {
		return err
	}
	bal := u.BalanceOf(token, from)
	if bal.Cmp(amount) < 0 {
		return insufficientBalance(token, from, bal, amount)
	}
	u.balances[balanceKey{token, from}] = bal.Sub(bal, amount)
	return nil
}

func (u *unit) move(token, from, to common.Address, amount *big.Int) error {
	fromBal := u.BalanceOf(token, from)
	if fromBal.Cmp(amount) < 0 {
		return insufficientBalance(token, from, fromBal, amount)
	}
	if from == to {
		return nil
	}
	toBal := u.BalanceOf(token, to)
	u.balances[balanceKey{token, from}] = fromBal.Sub(fromBal, amount)
	u.balances[balanceKey{token, to}] = toBal.Add(toBal, amount)
	return nil
}

func (u *unit) usable(amount *big.Int) error {
	if u.closed {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("unit %q already resolved", u.name)))
	}
	if amount == nil || amount.Sign() < 0 {
		return apperror.New(apperror.CodeInvalidAmount, apperror.WithContext(fmt.Sprintf("amount=%v", amount)))
	}
	return nil
}

func insufficientBalance(token, holder common.Address, have, want *big.Int) error {
	return apperror.New(apperror.CodeInsufficientBalance,
		apperror.WithContext(fmt.Sprintf("token=%s holder=%s have=%s want=%s", token.Hex(), holder.Hex(), have, want)))
}
