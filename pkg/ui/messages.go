// Package ui provides the Bubble Tea dashboard for the arbitrage engine.
package ui

import "time"

// Messages carry display-ready values. Amounts are formatted by the
// sender; the model only counts and renders.

// EventMsg is one engine event.
type EventMsg struct {
	Name    string
	At      time.Time
	Summary string
	// Amount is the signed display amount, e.g. "+0.0512 WETH".
	Amount string
	Failed bool
	// TotalProfit is the running profit after this event, when it changed.
	TotalProfit string
}

// ScanMsg is the agent's evaluation of one candidate trade.
type ScanMsg struct {
	Block      uint64
	Pair       string
	Principal  string
	Net        string
	Profitable bool
	Reason     string
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// FeePriceMsg carries the current fee-unit price.
type FeePriceMsg struct {
	Gwei float64
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
