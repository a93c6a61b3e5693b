package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event names.
const (
	EventTradeExecuted     = "TradeExecuted"
	EventTradeFailed       = "TradeFailed"
	EventParametersUpdated = "ParametersUpdated"
	EventFundsWithdrawn    = "FundsWithdrawn"
)

// Event is something the engine publishes for observers.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

type TradeExecuted struct {
	Asset    common.Address
	Profit   *big.Int
	PathOut  []common.Address
	PathBack []common.Address
	At       time.Time
}

func (e TradeExecuted) EventName() string     { return EventTradeExecuted }
func (e TradeExecuted) OccurredAt() time.Time { return e.At }

type TradeFailed struct {
	Asset      common.Address
	Reason     string
	Code       string
	Balance    *big.Int
	AmountOwed *big.Int
	At         time.Time
}

func (e TradeFailed) EventName() string     { return EventTradeFailed }
func (e TradeFailed) OccurredAt() time.Time { return e.At }

type ParametersUpdated struct {
	Params RiskParameters
	At     time.Time
}

func (e ParametersUpdated) EventName() string     { return EventParametersUpdated }
func (e ParametersUpdated) OccurredAt() time.Time { return e.At }

type FundsWithdrawn struct {
	Token  common.Address
	Amount *big.Int
	To     common.Address
	At     time.Time
}

func (e FundsWithdrawn) EventName() string     { return EventFundsWithdrawn }
func (e FundsWithdrawn) OccurredAt() time.Time { return e.At }

// OutcomeEvent converts an outcome to TradeExecuted or TradeFailed.
func OutcomeEvent(o *ExecutionOutcome) Event {
	if o.Success {
		return TradeExecuted{
			Asset:    o.Request.Asset,
			Profit:   cloneInt(o.Profit),
			PathOut:  append([]common.Address(nil), o.Request.PathOut...),
			PathBack: append([]common.Address(nil), o.Request.PathBack...),
			At:       o.FinishedAt,
		}
	}
	return TradeFailed{
		Asset:      o.Request.Asset,
		Reason:     o.FailureReason,
		Code:       string(o.FailureCode),
		Balance:    cloneInt(o.BalanceSnapshot),
		AmountOwed: cloneInt(o.AmountOwed),
		At:         o.FinishedAt,
	}
}
