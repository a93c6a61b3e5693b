package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ledger"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Custody lets the owner sweep balances held by the engine account.
type Custody struct {
	accounts Accounts
	ledger   *ledger.Ledger
	events   *EventBus
	entry    *entryGuard
	clock    func() time.Time

	logger  logger.LoggerInterface
	metrics *engineMetrics
}

// Balance is the engine's committed balance of token.
func (c *Custody) Balance(token common.Address) *big.Int {
	return c.ledger.BalanceOf(token, c.accounts.Engine)
}

// Withdraw transfers amount of token from the engine to the owner.
func (c *Custody) Withdraw(ctx context.Context, caller, token common.Address, amount *big.Int) error {
	if caller != c.accounts.Owner {
		return apperror.New(apperror.CodeUnauthorizedCaller,
			apperror.WithContext("withdraw: "+caller.Hex()))
	}
	if amount == nil || amount.Sign() <= 0 {
		return apperror.New(apperror.CodeInvalidAmount, apperror.WithContext("withdraw amount must be positive"))
	}
	release, err := c.entry.acquire()
	if err != nil {
		return err
	}
	defer release()

	err = c.ledger.Atomically(ctx, "arbitrage.withdraw", func(_ context.Context, tx ledger.Tx) error {
		return tx.Transfer(token, c.accounts.Engine, c.accounts.Owner, amount)
	})
	if err != nil {
		return err
	}

	c.metrics.withdrawals.Add(ctx, 1)
	c.events.Publish(domain.FundsWithdrawn{
		Token:  token,
		Amount: new(big.Int).Set(amount),
		To:     c.accounts.Owner,
		At:     c.clock(),
	})
	c.logger.Info(ctx, "funds withdrawn", "token", token.Hex(), "amount", amount.String())
	return nil
}
