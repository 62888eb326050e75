package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains lipgloss styles for the TUI.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Status   lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
	Frame    lipgloss.Style
	Help     lipgloss.Style
	Key      lipgloss.Style
	Checkbox lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Width(10).
			Foreground(lipgloss.Color("250")),
		Focused: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		Checkbox: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")),
	}
}
