package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yllada/portal-login/portal"
)

// Run shows the login screen until the user quits or ctx is cancelled.
func Run(ctx context.Context, mode Mode, manager *portal.Manager, login portal.LoginConfig) error {
	model := NewModel(ctx, mode, manager, manager.Settings(), login)

	program := tea.NewProgram(model, tea.WithContext(ctx))
	manager.SetStatusHandler(func(message string, progress int) {
		program.Send(StatusMsg{Message: message, Progress: progress})
	})
	defer manager.SetStatusHandler(nil)

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// ParseMode maps the launcher flags to a layout.
func ParseMode(full bool) Mode {
	if full {
		return ModeFull
	}
	return ModeMini
}

var _ Controller = (*portal.Manager)(nil)
