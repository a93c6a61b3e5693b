package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents a connection's status.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent renders connection status as one line.
type StatusComponent struct {
	connections map[string]ConnectionStatus
}

// NewStatusComponent starts every named connection as disconnected.
func NewStatusComponent(names ...string) *StatusComponent {
	s := &StatusComponent{connections: make(map[string]ConnectionStatus, len(names))}
	for _, n := range names {
		s.connections[n] = ConnectionStatus{Name: n}
	}
	return s
}

func (s *StatusComponent) Update(status ConnectionStatus) {
	s.connections[status.Name] = status
}

func (s *StatusComponent) Get(name string) (ConnectionStatus, bool) {
	c, ok := s.connections[name]
	return c, ok
}

func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}
	up := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	down := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	names := make([]string, 0, len(s.connections))
	for n := range s.connections {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		c := s.connections[n]
		if !c.Connected {
			parts = append(parts, down.Render("○ "+n+" (disconnected)"))
			continue
		}
		label := n
		if c.Latency > 0 {
			label = fmt.Sprintf("%s (%dms)", n, c.Latency.Milliseconds())
		}
		parts = append(parts, up.Render("● "+label))
	}
	return strings.Join(parts, "  ")
}
