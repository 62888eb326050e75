package tui

import (
	"fmt"
	"strings"

	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/portal"
)

// View renders the login screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(common.AppName))
	b.WriteString("\n")

	b.WriteString(m.renderField("Username", m.username.View(), focusUsername))
	b.WriteString("\n")
	b.WriteString(m.renderField("Password", m.password.View(), focusPassword))
	b.WriteString("\n\n")

	b.WriteString(m.renderCheckbox("Remember me", m.rememberMe, focusRemember))
	if m.mode == ModeFull {
		b.WriteString("\n")
		b.WriteString(m.renderCheckbox("Auto login", m.autoLogin, focusAutoLogin))
		b.WriteString("\n")
		b.WriteString(m.renderCheckbox("Hide browser", m.headless, focusHeadless))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderStatus())
	b.WriteString(m.renderHelpLine())

	if m.mode == ModeFull {
		return m.styles.Frame.Render(b.String())
	}
	return b.String()
}

func (m Model) renderField(label, input string, index int) string {
	style := m.styles.Label
	if m.focus == index {
		style = style.Inherit(m.styles.Focused)
	}
	return style.Render(label) + input
}

func (m Model) renderCheckbox(label string, checked bool, index int) string {
	box := "[ ]"
	if checked {
		box = "[x]"
	}
	line := box + " " + label
	if m.focus == index {
		return m.styles.Focused.Render(line)
	}
	return m.styles.Checkbox.Render(line)
}

func (m Model) renderStatus() string {
	var b strings.Builder

	if m.busy {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.styles.Status.Render(m.status))
		b.WriteString("\n")
	} else if m.status != "" && m.outcome == nil && m.lastError == "" {
		b.WriteString(m.styles.Muted.Render(m.status))
		b.WriteString("\n")
	}

	if m.percent >= 0 && (m.busy || m.outcome != nil) {
		b.WriteString(m.progress.ViewAs(float64(m.percent) / 100))
		b.WriteString("\n")
	}

	switch {
	case m.lastError != "":
		b.WriteString(m.styles.Error.Render("Error: " + m.lastError))
		b.WriteString("\n")
	case m.outcome != nil:
		b.WriteString(m.renderOutcome(*m.outcome))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderOutcome(o portal.Outcome) string {
	switch o.Kind {
	case portal.KindSuccess, portal.KindAlreadyLoggedIn:
		return m.styles.Success.Render("✓ " + o.Message())
	case portal.KindConnectionError, portal.KindRedirectLoop:
		return m.styles.Warning.Render("! " + o.Message())
	default:
		return m.styles.Error.Render("✗ " + o.Message())
	}
}

func (m Model) renderHelpLine() string {
	keys := []struct{ key, desc string }{
		{"enter", "login"},
		{"tab", "next"},
	}
	if m.focus >= focusRemember {
		keys = append(keys, struct{ key, desc string }{"space", "toggle"})
	}
	if m.ctrl != nil && m.ctrl.IsConnected() {
		keys = append(keys, struct{ key, desc string }{"ctrl+d", "disconnect"})
	}
	keys = append(keys, struct{ key, desc string }{"esc", "quit"})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", m.styles.Key.Render(k.key), k.desc))
	}
	return m.styles.Help.Render(strings.Join(parts, " • "))
}
