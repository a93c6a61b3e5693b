// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// OpportunityRow is one simulated candidate.
type OpportunityRow struct {
	BlockNumber uint64
	Pair        string
	Principal   string
	Net         string
	Profitable  bool
	Reason      string
}

// OpportunitiesComponent renders the most recent simulations, newest first.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	visible int
	offset  int
}

func NewOpportunitiesComponent(maxRows, visible int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0, maxRows),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add prepends row, dropping the oldest beyond maxRows.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

func (o *OpportunitiesComponent) Len() int { return len(o.rows) }

func (o *OpportunitiesComponent) Clear() {
	o.rows = o.rows[:0]
	o.offset = 0
}

func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset < len(o.rows)-o.visible {
		o.offset++
	}
}

func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	profitableStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	unprofitableStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if len(o.rows) == 0 {
		return headerStyle.Render("SIMULATIONS") + "\n\n" + dimStyle.Render("  Waiting for the first block...")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("SIMULATIONS (%d)", len(o.rows))))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %-9s %-11s %10s %14s  %s\n", "Block", "Pair", "Loan", "Net", "Status"))
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 64)) + "\n")

	end := o.offset + o.visible
	if end > len(o.rows) {
		end = len(o.rows)
	}
	for _, row := range o.rows[o.offset:end] {
		status := profitableStyle.Render("✓ profitable")
		if !row.Profitable {
			status = unprofitableStyle.Render("✗ " + row.Reason)
		}
		b.WriteString(fmt.Sprintf("  %-9d %-11s %10s %14s  %s\n",
			row.BlockNumber, row.Pair, row.Principal, row.Net, status))
	}
	if len(o.rows) > o.visible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", o.offset+1, end, len(o.rows))))
	}
	return b.String()
}
