package infra

import (
	"context"
	"errors"
	"math/big"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

var _ app.Reporter = (*TUIReporter)(nil)

// TUIReporter implements Reporter over the Bubble Tea dashboard.
type TUIReporter struct {
	fmt     *Formatter
	opts    ui.Options
	onQuit  func()
	progOpt []tea.ProgramOption

	program *tea.Program
	done    chan struct{}
}

// NewTUIReporter builds the reporter. onQuit runs when the user leaves the
// dashboard.
func NewTUIReporter(f *Formatter, opts ui.Options, onQuit func(), progOpts ...tea.ProgramOption) *TUIReporter {
	if len(progOpts) == 0 {
		progOpts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUIReporter{fmt: f, opts: opts, onQuit: onQuit, progOpt: progOpts, done: make(chan struct{})}
}

// Start runs the program in the background until ctx ends or the user quits.
func (r *TUIReporter) Start(ctx context.Context) error {
	if r.program != nil {
		return errors.New("tui: already started")
	}
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, r.progOpt...)
	r.program = tea.NewProgram(ui.New(r.opts), opts...)

	go func() {
		defer close(r.done)
		r.program.Run()
		if r.onQuit != nil {
			r.onQuit()
		}
	}()
	return nil
}

func (r *TUIReporter) send(msg tea.Msg) {
	if r.program == nil {
		return
	}
	select {
	case <-r.done:
	default:
		r.program.Send(msg)
	}
}

func (r *TUIReporter) Report(ev domain.Event) {
	msg := ui.EventMsg{
		Name:        ev.EventName(),
		At:          ev.OccurredAt(),
		Summary:     r.fmt.Line(ev),
		TotalProfit: r.fmt.Record(ev),
	}
	switch e := ev.(type) {
	case domain.TradeExecuted:
		msg.Amount = r.fmt.Signed(e.Asset, e.Profit)
	case domain.TradeFailed:
		msg.Failed = true
		if e.Balance != nil && e.AmountOwed != nil {
			msg.Amount = r.fmt.Signed(e.Asset, new(big.Int).Sub(e.Balance, e.AmountOwed))
		}
	case domain.FundsWithdrawn:
		msg.Amount = "-" + r.fmt.Amount(e.Token, e.Amount)
	}
	r.send(msg)
}

func (r *TUIReporter) ReportScan(s app.Scan) {
	r.send(ui.ScanMsg{
		Block:      s.Block,
		Pair:       s.Pair,
		Principal:  r.fmt.ScanPrincipal(s),
		Net:        r.fmt.ScanNet(s),
		Profitable: s.Result.Profitable,
		Reason:     s.Result.Reason,
	})
	if s.Result.FeeUnitPrice != nil {
		gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(s.Result.FeeUnitPrice), big.NewFloat(1e9)).Float64()
		r.send(ui.FeePriceMsg{Gwei: gwei})
	}
}

func (r *TUIReporter) UpdateBlock(number uint64, at time.Time) {
	r.send(ui.BlockMsg{Number: number, Timestamp: at})
}

func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Error shows err in the dashboard's error panel.
func (r *TUIReporter) Error(err error) {
	r.send(ui.ErrorMsg{Error: err})
}

// Stop quits the program and waits for it to restore the terminal.
func (r *TUIReporter) Stop() error {
	if r.program == nil {
		return nil
	}
	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

// Done is closed once the program has exited.
func (r *TUIReporter) Done() <-chan struct{} { return r.done }
