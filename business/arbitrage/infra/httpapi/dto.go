package httpapi

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// Amounts travel as base-unit integer strings.

type ParamsDTO struct {
	MinProfit                  string `json:"min_profit"`
	SlippageToleranceBps       uint64 `json:"slippage_tolerance_bps"`
	GasCostEstimateUnits       uint64 `json:"gas_cost_estimate_units"`
	MaxAcceptableFeeUnitPrice  string `json:"max_acceptable_fee_unit_price"`
	LoanPremiumBps             uint64 `json:"loan_premium_bps"`
	PriceDeviationToleranceBps uint64 `json:"price_deviation_tolerance_bps"`
}

func paramsDTO(p domain.RiskParameters) ParamsDTO {
	return ParamsDTO{
		MinProfit:                  intString(p.MinProfit),
		SlippageToleranceBps:       p.SlippageToleranceBps,
		GasCostEstimateUnits:       p.GasCostEstimateUnits,
		MaxAcceptableFeeUnitPrice:  intString(p.MaxAcceptableFeeUnitPrice),
		LoanPremiumBps:             p.LoanPremiumBps,
		PriceDeviationToleranceBps: p.PriceDeviationToleranceBps,
	}
}

func (d ParamsDTO) toDomain() (domain.RiskParameters, error) {
	minProfit, err := parseInt("min_profit", d.MinProfit)
	if err != nil {
		return domain.RiskParameters{}, err
	}
	maxFee, err := parseInt("max_acceptable_fee_unit_price", d.MaxAcceptableFeeUnitPrice)
	if err != nil {
		return domain.RiskParameters{}, err
	}
	return domain.RiskParameters{
		MinProfit:                  minProfit,
		SlippageToleranceBps:       d.SlippageToleranceBps,
		GasCostEstimateUnits:       d.GasCostEstimateUnits,
		MaxAcceptableFeeUnitPrice:  maxFee,
		LoanPremiumBps:             d.LoanPremiumBps,
		PriceDeviationToleranceBps: d.PriceDeviationToleranceBps,
	}, nil
}

type TradeRequestDTO struct {
	Asset     string   `json:"asset"`
	PoolA     string   `json:"pool_a"`
	PoolB     string   `json:"pool_b"`
	PathOut   []string `json:"path_out"`
	PathBack  []string `json:"path_back"`
	Principal string   `json:"principal"`
	// Deadline is RFC 3339; empty means now plus the server's default.
	Deadline string `json:"deadline,omitempty"`
}

func (d TradeRequestDTO) toDomain(now time.Time, defaultTTL time.Duration) (domain.TradeRequest, error) {
	asset, err := parseAddress("asset", d.Asset)
	if err != nil {
		return domain.TradeRequest{}, err
	}
	poolA, err := parseAddress("pool_a", d.PoolA)
	if err != nil {
		return domain.TradeRequest{}, err
	}
	poolB, err := parseAddress("pool_b", d.PoolB)
	if err != nil {
		return domain.TradeRequest{}, err
	}
	pathOut, err := parsePath("path_out", d.PathOut)
	if err != nil {
		return domain.TradeRequest{}, err
	}
	pathBack, err := parsePath("path_back", d.PathBack)
	if err != nil {
		return domain.TradeRequest{}, err
	}
	principal, err := parseInt("principal", d.Principal)
	if err != nil {
		return domain.TradeRequest{}, err
	}

	deadline := now.Add(defaultTTL)
	if d.Deadline != "" {
		deadline, err = time.Parse(time.RFC3339, d.Deadline)
		if err != nil {
			return domain.TradeRequest{}, invalidInput("deadline", err)
		}
	}
	return domain.NewTradeRequest(asset, poolA, poolB, pathOut, pathBack, principal, deadline), nil
}

type SimulationDTO struct {
	Profitable      bool   `json:"profitable"`
	EstimatedProfit string `json:"estimated_profit"`
	Intermediate    string `json:"intermediate,omitempty"`
	Final           string `json:"final,omitempty"`
	Owed            string `json:"owed,omitempty"`
	ExecutionCost   string `json:"execution_cost,omitempty"`
	FeeUnitPrice    string `json:"fee_unit_price,omitempty"`
	Net             string `json:"net,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

func simulationDTO(r app.SimulationResult) SimulationDTO {
	return SimulationDTO{
		Profitable:      r.Profitable,
		EstimatedProfit: intString(r.EstimatedProfit),
		Intermediate:    intString(r.Intermediate),
		Final:           intString(r.Final),
		Owed:            intString(r.Owed),
		ExecutionCost:   intString(r.ExecutionCost),
		FeeUnitPrice:    intString(r.FeeUnitPrice),
		Net:             intString(r.Net),
		Reason:          r.Reason,
	}
}

type OutcomeDTO struct {
	Success         bool     `json:"success"`
	Profit          string   `json:"profit,omitempty"`
	FailureReason   string   `json:"failure_reason,omitempty"`
	FailureCode     string   `json:"failure_code,omitempty"`
	BalanceSnapshot string   `json:"balance_snapshot,omitempty"`
	AmountOwed      string   `json:"amount_owed,omitempty"`
	ExecutionCost   string   `json:"execution_cost,omitempty"`
	FinalState      string   `json:"final_state"`
	States          []string `json:"states"`
	DurationMs      int64    `json:"duration_ms"`
}

// executeFailure is an error envelope that also carries the outcome when
// the attempt got far enough to produce one.
type executeFailure struct {
	apperror.Response
	Outcome *OutcomeDTO `json:"outcome,omitempty"`
}

func outcomeDTO(o *domain.ExecutionOutcome) *OutcomeDTO {
	if o == nil {
		return nil
	}
	states := make([]string, len(o.States))
	for i, s := range o.States {
		states[i] = s.String()
	}
	return &OutcomeDTO{
		Success:         o.Success,
		Profit:          intString(o.Profit),
		FailureReason:   o.FailureReason,
		FailureCode:     string(o.FailureCode),
		BalanceSnapshot: intString(o.BalanceSnapshot),
		AmountOwed:      intString(o.AmountOwed),
		ExecutionCost:   intString(o.ExecutionCost),
		FinalState:      o.FinalState.String(),
		States:          states,
		DurationMs:      o.Duration().Milliseconds(),
	}
}

type WithdrawDTO struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type BalanceDTO struct {
	Token   string `json:"token"`
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

// EventDTO is the wire form of every engine event; Name selects which
// fields are set.
type EventDTO struct {
	Name       string     `json:"name"`
	At         time.Time  `json:"at"`
	Asset      string     `json:"asset,omitempty"`
	Profit     string     `json:"profit,omitempty"`
	PathOut    []string   `json:"path_out,omitempty"`
	PathBack   []string   `json:"path_back,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Code       string     `json:"code,omitempty"`
	Balance    string     `json:"balance,omitempty"`
	AmountOwed string     `json:"amount_owed,omitempty"`
	Params     *ParamsDTO `json:"params,omitempty"`
	Token      string     `json:"token,omitempty"`
	Amount     string     `json:"amount,omitempty"`
	To         string     `json:"to,omitempty"`
}

func EncodeEvent(ev domain.Event) EventDTO {
	dto := EventDTO{Name: ev.EventName(), At: ev.OccurredAt().UTC()}
	switch e := ev.(type) {
	case domain.TradeExecuted:
		dto.Asset = e.Asset.Hex()
		dto.Profit = intString(e.Profit)
		dto.PathOut = hexPath(e.PathOut)
		dto.PathBack = hexPath(e.PathBack)
	case domain.TradeFailed:
		dto.Asset = e.Asset.Hex()
		dto.Reason = e.Reason
		dto.Code = e.Code
		dto.Balance = intString(e.Balance)
		dto.AmountOwed = intString(e.AmountOwed)
	case domain.ParametersUpdated:
		p := paramsDTO(e.Params)
		dto.Params = &p
	case domain.FundsWithdrawn:
		dto.Token = e.Token.Hex()
		dto.Amount = intString(e.Amount)
		dto.To = e.To.Hex()
	}
	return dto
}

// DecodeEvent parses a feed frame back into an engine event.
func DecodeEvent(data []byte) (domain.Event, error) {
	var dto EventDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, invalidInput("event", err)
	}

	switch dto.Name {
	case domain.EventTradeExecuted:
		return domain.TradeExecuted{
			Asset:    common.HexToAddress(dto.Asset),
			Profit:   optionalInt(dto.Profit),
			PathOut:  addrPath(dto.PathOut),
			PathBack: addrPath(dto.PathBack),
			At:       dto.At,
		}, nil
	case domain.EventTradeFailed:
		return domain.TradeFailed{
			Asset:      common.HexToAddress(dto.Asset),
			Reason:     dto.Reason,
			Code:       dto.Code,
			Balance:    optionalInt(dto.Balance),
			AmountOwed: optionalInt(dto.AmountOwed),
			At:         dto.At,
		}, nil
	case domain.EventParametersUpdated:
		ev := domain.ParametersUpdated{At: dto.At}
		if dto.Params != nil {
			p, err := dto.Params.toDomain()
			if err != nil {
				return nil, err
			}
			ev.Params = p
		}
		return ev, nil
	case domain.EventFundsWithdrawn:
		return domain.FundsWithdrawn{
			Token:  common.HexToAddress(dto.Token),
			Amount: optionalInt(dto.Amount),
			To:     common.HexToAddress(dto.To),
			At:     dto.At,
		}, nil
	}
	return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("unknown event "+dto.Name))
}

func intString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func optionalInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}

func parseInt(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, invalidInput(field, fmt.Errorf("not a base-10 integer: %q", s))
	}
	return v, nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, invalidInput(field, fmt.Errorf("not an address: %q", s))
	}
	return common.HexToAddress(s), nil
}

func parsePath(field string, hops []string) ([]common.Address, error) {
	out := make([]common.Address, len(hops))
	for i, h := range hops {
		a, err := parseAddress(fmt.Sprintf("%s[%d]", field, i), h)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func hexPath(path []common.Address) []string {
	out := make([]string, len(path))
	for i, a := range path {
		out[i] = a.Hex()
	}
	return out
}

func addrPath(path []string) []common.Address {
	out := make([]common.Address, len(path))
	for i, s := range path {
		out[i] = common.HexToAddress(s)
	}
	return out
}

func invalidInput(field string, err error) error {
	return apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err), apperror.WithContext(field))
}
