package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TradeRow is one engine event line.
type TradeRow struct {
	Time    string
	Name    string
	Summary string
	Amount  string
	Failed  bool
}

// TradesComponent renders the engine's event history and running profit.
type TradesComponent struct {
	rows    []TradeRow
	maxRows int
	total   string
}

func NewTradesComponent(maxRows int) *TradesComponent {
	return &TradesComponent{maxRows: maxRows, total: "0"}
}

func (t *TradesComponent) Add(row TradeRow) {
	t.rows = append([]TradeRow{row}, t.rows...)
	if len(t.rows) > t.maxRows {
		t.rows = t.rows[:t.maxRows]
	}
}

// SetTotal sets the running profit shown in the header.
func (t *TradesComponent) SetTotal(total string) { t.total = total }

func (t *TradesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render("ENGINE EVENTS"))
	b.WriteString(dimStyle.Render("  profit: "))
	b.WriteString(okStyle.Render(t.total))
	b.WriteString("\n\n")

	if len(t.rows) == 0 {
		b.WriteString(dimStyle.Render("  No trades yet"))
		return b.String()
	}
	for _, row := range t.rows {
		style := okStyle
		if row.Failed {
			style = failStyle
		}
		b.WriteString(fmt.Sprintf("  %s %s %s",
			dimStyle.Render(row.Time),
			style.Render(fmt.Sprintf("%-17s", row.Name)),
			row.Summary))
		if row.Amount != "" {
			b.WriteString("  " + style.Render(row.Amount))
		}
		b.WriteString("\n")
	}
	return b.String()
}
