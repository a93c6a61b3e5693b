package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
	fmt *Formatter
	// verbose also prints every non-profitable scan.
	verbose bool
	conns   map[string]bool
}

func NewConsoleReporter(out io.Writer, f *Formatter, verbose bool) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out, fmt: f, verbose: verbose, conns: map[string]bool{}}
}

func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.printf("Flash-Loan Arbitrage Engine Started\n")
	r.printf("===================================\n")
	return nil
}

func (r *ConsoleReporter) Report(ev domain.Event) {
	total := r.fmt.Record(ev)

	r.mu.Lock()
	defer r.mu.Unlock()
	rule := "================================================================================"
	at := ev.OccurredAt().Format(time.RFC3339)

	switch e := ev.(type) {
	case domain.TradeExecuted:
		fmt.Fprintln(r.out, "")
		fmt.Fprintln(r.out, rule)
		fmt.Fprintln(r.out, "TRADE EXECUTED")
		fmt.Fprintln(r.out, rule)
		fmt.Fprintf(r.out, "Timestamp:      %s\n", at)
		fmt.Fprintf(r.out, "Route:          %s\n", r.fmt.Line(e))
		fmt.Fprintf(r.out, "Profit:         %s\n", r.fmt.Signed(e.Asset, e.Profit))
		fmt.Fprintf(r.out, "Session total:  %s\n", total)
		fmt.Fprintln(r.out, rule)
	case domain.TradeFailed:
		fmt.Fprintf(r.out, "[%s] TRADE ABORTED  %s\n", at, r.fmt.Line(e))
	default:
		fmt.Fprintf(r.out, "[%s] %s  %s\n", at, ev.EventName(), r.fmt.Line(ev))
	}
}

func (r *ConsoleReporter) ReportScan(s app.Scan) {
	if !s.Result.Profitable && !r.verbose {
		return
	}
	status := "PROFITABLE"
	if !s.Result.Profitable {
		status = "skip: " + s.Result.Reason
	}
	r.printf("#%d %-10s loan %-14s net %-20s %s\n",
		s.Block, s.Pair, r.fmt.ScanPrincipal(s), r.fmt.ScanNet(s), status)
}

func (r *ConsoleReporter) UpdateBlock(number uint64, at time.Time) {
	if r.verbose {
		r.printf("[%s] block #%d\n", at.Format("15:04:05"), number)
	}
}

// UpdateConnectionStatus prints state changes only.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.mu.Lock()
	prev, seen := r.conns[name]
	r.conns[name] = connected
	r.mu.Unlock()
	if seen && prev == connected {
		return
	}

	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency.Round(time.Millisecond))
	}
	r.printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

func (r *ConsoleReporter) Stop() error {
	r.printf("\nFlash-Loan Arbitrage Engine Stopped\n")
	return nil
}

func (r *ConsoleReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
