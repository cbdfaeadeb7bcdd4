// Package ui renders the evacuation-plan dashboard in the terminal.
package ui

import (
	"evacuation-dashboard/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	Green  = lipgloss.Color("#15803d")
	Red    = lipgloss.Color("#b91c1c")
	Yellow = lipgloss.Color("#a16207")
	Gray   = lipgloss.Color("#4b5563")
	Blue   = lipgloss.Color("#2563eb")
	Border = lipgloss.Color("#d1d5db")
)

// Styles groups the lipgloss styles used by the renderer.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Card     lipgloss.Style
	Selected lipgloss.Style
	Stat     lipgloss.Style
	Link     lipgloss.Style
	Alert    lipgloss.Style
	Help     lipgloss.Style
	Badge    lipgloss.Style
}

func DefaultStyles() Styles {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	return Styles{
		Title:    lipgloss.NewStyle().Bold(true),
		Subtitle: lipgloss.NewStyle().Foreground(Gray),
		Label:    lipgloss.NewStyle().Foreground(Gray),
		Value:    lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(Gray).Faint(true),
		Card:     card,
		Selected: card.BorderForeground(Blue),
		Stat:     card.Width(22),
		Link:     lipgloss.NewStyle().Foreground(Blue).Underline(true),
		Alert: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Red).
			Padding(0, 2),
		Help:  lipgloss.NewStyle().Foreground(Gray),
		Badge: lipgloss.NewStyle().Bold(true).Padding(0, 1),
	}
}

// badgeColor maps a status to its display color; unknown values are gray.
func badgeColor(status string) lipgloss.Color {
	switch status {
	case string(domain.PlanActive), string(domain.ShelterOperational), string(domain.RouteClear):
		return Green
	case string(domain.ShelterFull), string(domain.RouteBlocked):
		return Red
	case string(domain.PlanUnderReview), string(domain.ShelterMaintenance), string(domain.RouteCongested):
		return Yellow
	}
	return Gray
}
