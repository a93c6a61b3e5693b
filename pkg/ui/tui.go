package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/flashloan-arb/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

const maxErrors = 3

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Options configures a Model.
type Options struct {
	Title string
	// Connections are shown as disconnected until reported.
	Connections []string
	// OnStart runs once, in its own goroutine, when the welcome screen ends.
	OnStart func()
	// Now defaults to time.Now.
	Now func() time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	opportunities *components.OpportunitiesComponent
	trades        *components.TradesComponent
	stats         *components.StatsComponent
	status        *components.StatusComponent
	keys          KeyMap
	help          help.Model

	opts         Options
	phase        Phase
	welcomeStart time.Time
	started      bool

	quitting     bool
	paused       bool
	width        int
	height       int
	currentBlock uint64
	feeGwei      float64
	lastUpdate   time.Time
	counters     components.Stats
	errors       []ErrorEntry
	activity     []string
}

func New(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Title == "" {
		opts.Title = "Flash-Loan Arbitrage"
	}
	return Model{
		opportunities: components.NewOpportunitiesComponent(100, 12),
		trades:        components.NewTradesComponent(8),
		stats:         components.NewStatsComponent(),
		status:        components.NewStatusComponent(opts.Connections...),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		opts:          opts,
		phase:         PhaseWelcome,
		welcomeStart:  opts.Now(),
		errors:        make([]ErrorEntry, 0, maxErrors),
		activity:      make([]string, 0, 6),
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd drives the welcome timeout and the status bar clock.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m = m.enterDashboard()
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Errors):
			m.errors = m.errors[:0]
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && m.opts.Now().Sub(m.welcomeStart) >= WelcomeDuration {
			m = m.enterDashboard()
		}
		return m, tickCmd()

	case ScanMsg:
		m.counters.Scans++
		if msg.Profitable {
			m.counters.Profitable++
		}
		if !m.paused {
			m.opportunities.Add(components.OpportunityRow{
				BlockNumber: msg.Block,
				Pair:        msg.Pair,
				Principal:   msg.Principal,
				Net:         msg.Net,
				Profitable:  msg.Profitable,
				Reason:      msg.Reason,
			})
		}
		m.lastUpdate = m.opts.Now()

	case EventMsg:
		m.trades.Add(components.TradeRow{
			Time:    msg.At.Format("15:04:05"),
			Name:    msg.Name,
			Summary: msg.Summary,
			Amount:  msg.Amount,
			Failed:  msg.Failed,
		})
		if msg.TotalProfit != "" {
			m.trades.SetTotal(msg.TotalProfit)
		}
		switch msg.Name {
		case "TradeExecuted":
			m.counters.Executed++
		case "TradeFailed":
			m.counters.Failed++
		}
		m.activity = m.addActivity(msg.Name + ": " + msg.Summary)
		m.lastUpdate = m.opts.Now()

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: m.opts.Now(),
		})
		m.lastUpdate = m.opts.Now()

	case BlockMsg:
		if msg.Number > m.currentBlock {
			m.currentBlock = msg.Number
			m.counters.Blocks++
			m.activity = m.addActivity(fmt.Sprintf("Block #%d received", msg.Number))
		}
		m.lastUpdate = m.opts.Now()

	case FeePriceMsg:
		m.feeGwei = msg.Gwei

	case ErrorMsg:
		m.counters.Errors++
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: m.opts.Now()})
		if len(m.errors) > maxErrors {
			m.errors = m.errors[len(m.errors)-maxErrors:]
		}

	case LogMsg:
		m.activity = m.addActivity(msg.Level + ": " + msg.Message)
	}

	m.stats.Update(m.counters)
	return m, nil
}

func (m Model) enterDashboard() Model {
	m.phase = PhaseDashboard
	if !m.started && m.opts.OnStart != nil {
		m.started = true
		go m.opts.OnStart()
	}
	return m
}

// addActivity appends a timestamped line, keeping the last six.
func (m Model) addActivity(line string) []string {
	feed := append(m.activity, fmt.Sprintf("[%s] %s", m.opts.Now().Format("15:04:05"), line))
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}
	if m.phase == PhaseWelcome {
		return m.renderWelcomeScreen()
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(" " + m.opts.Title + " "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	left := m.opportunities.View()
	right := m.trades.View() + "\n\n" + m.renderActivityFeed()

	if m.width > 100 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			BoxStyle.Width(m.width/2-2).Render(left),
			BoxStyle.Width(m.width/2-2).Render(right)))
	} else {
		w := m.width - 4
		if w < 20 {
			w = 76
		}
		b.WriteString(BoxStyle.Width(w).Render(left))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(w).Render(right))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(ColorDanger).Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, e := range m.errors {
			ago := m.opts.Now().Sub(e.Timestamp).Round(time.Second)
			b.WriteString(ErrorStyle.Render("  • " + e.Message + " "))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(PausedStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderActivityFeed() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activity) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for blocks..."))
		return sb.String()
	}
	for _, line := range m.activity {
		if strings.Contains(line, "Block #") {
			sb.WriteString(BlockValue.Render("  " + line))
		} else {
			sb.WriteString(MutedValue.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
	greenStyle := lipgloss.NewStyle().Foreground(ColorSecondary)

	elapsed := m.opts.Now().Sub(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	logo := `
   ███████╗██╗      █████╗ ███████╗██╗  ██╗     █████╗ ██████╗ ██████╗
   ██╔════╝██║     ██╔══██╗██╔════╝██║  ██║    ██╔══██╗██╔══██╗██╔══██╗
   █████╗  ██║     ███████║███████╗███████║    ███████║██████╔╝██████╔╝
   ██╔══╝  ██║     ██╔══██║╚════██║██╔══██║    ██╔══██║██╔══██╗██╔══██╗
   ██║     ███████╗██║  ██║███████║██║  ██║    ██║  ██║██║  ██║██████╔╝
   ╚═╝     ╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝    ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`
	var sb strings.Builder
	sb.WriteString("\n\n\n")
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("          borrow  →  swap  →  swap back  →  repay, or nothing happened"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("                       " + m.opts.Title))
	sb.WriteString("\n\n")
	sb.WriteString(greenStyle.Render("                       Initializing" + dots))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("                  Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{fmt.Sprintf("Block: #%d", m.currentBlock)}
	if m.feeGwei > 0 {
		parts = append(parts, fmt.Sprintf("Fee: %.1f gwei", m.feeGwei))
	}
	parts = append(parts, m.status.View())
	if !m.lastUpdate.IsZero() {
		ago := m.opts.Now().Sub(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}
	return strings.Join(parts, "  │  ")
}
