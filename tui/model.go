// Package tui provides the terminal front end of Portal Login. It observes
// the login manager's (message, progress) updates and renders them in a
// compact or a full layout.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/config"
	"github.com/yllada/portal-login/portal"
)

// Mode selects the layout.
type Mode int

const (
	// ModeMini shows only the credential fields.
	ModeMini Mode = iota
	// ModeFull adds the settings toggles.
	ModeFull
)

// Controller is the part of portal.Manager the TUI drives.
type Controller interface {
	Login(ctx context.Context, req portal.LoginRequest) (portal.Outcome, error)
	Disconnect() error
	IsConnected() bool
	UpdateSettings(fn func(*config.Config)) error
}

// StatusMsg carries a progress update from the login session.
type StatusMsg struct {
	Message  string
	Progress int
}

// autoLoginMsg starts the login configured to run at startup.
type autoLoginMsg struct{}

// LoginDoneMsg reports the end of a login.
type LoginDoneMsg struct {
	Outcome portal.Outcome
	Err     error
}

// focusable elements, in tab order.
const (
	focusUsername = iota
	focusPassword
	focusRemember
	focusAutoLogin
	focusHeadless
)

// Model is the Bubble Tea model of the login screen.
type Model struct {
	ctx      context.Context
	mode     Mode
	ctrl     Controller
	settings *config.Config
	login    portal.LoginConfig

	username textinput.Model
	password textinput.Model
	focus    int

	rememberMe bool
	autoLogin  bool
	headless   bool

	spinner  spinner.Model
	progress progress.Model

	busy      bool
	status    string
	percent   int
	outcome   *portal.Outcome
	lastError string
	width     int
	quitting  bool

	styles Styles
}

// NewModel creates the login screen. login is the attempt configuration;
// its Headless field is replaced by the user's choice.
func NewModel(ctx context.Context, mode Mode, ctrl Controller, settings *config.Config, login portal.LoginConfig) Model {
	if settings == nil {
		settings = config.DefaultConfig()
	}

	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.SetValue(settings.Username)

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		ctx:        ctx,
		mode:       mode,
		ctrl:       ctrl,
		settings:   settings,
		login:      login,
		username:   username,
		password:   password,
		rememberMe: settings.RememberMe,
		autoLogin:  settings.AutoLogin,
		headless:   settings.HeadlessMode,
		spinner:    s,
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		percent:    common.ProgressNone,
		styles:     DefaultStyles(),
	}

	if settings.Username != "" {
		m.focus = focusPassword
	}
	m.applyFocus()
	return m
}

// Init starts an automatic login when one is configured.
func (m Model) Init() tea.Cmd {
	if m.autoLogin && m.settings.Username != "" && m.settings.RememberMe {
		return tea.Batch(textinput.Blink, func() tea.Msg { return autoLoginMsg{} })
	}
	return textinput.Blink
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case autoLoginMsg:
		if m.busy {
			return m, nil
		}
		return m, m.startLogin()

	case StatusMsg:
		m.status = msg.Message
		if msg.Progress != common.ProgressNone {
			m.percent = msg.Progress
		}
		return m, nil

	case LoginDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.lastError = msg.Err.Error()
			m.outcome = nil
			return m, nil
		}
		outcome := msg.Outcome
		m.outcome = &outcome
		m.lastError = ""
		if outcome.OK() {
			m.password.SetValue("")
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "down":
		m.focus = (m.focus + 1) % m.focusCount()
		m.applyFocus()
		return m, nil

	case "shift+tab", "up":
		m.focus = (m.focus + m.focusCount() - 1) % m.focusCount()
		m.applyFocus()
		return m, nil

	case "enter":
		if m.busy {
			return m, nil
		}
		return m, m.startLogin()

	case "ctrl+d":
		if m.busy {
			return m, nil
		}
		if err := m.ctrl.Disconnect(); err != nil {
			m.lastError = err.Error()
		} else {
			m.outcome = nil
			m.status = "Disconnected"
			m.percent = common.ProgressNone
		}
		return m, nil

	case " ":
		if m.toggle() {
			return m, nil
		}
	}

	return m.updateInputs(msg)
}

// toggle flips the focused checkbox. It reports false when a text field
// has focus. Checkboxes are locked while a login runs.
func (m *Model) toggle() bool {
	if m.focus < focusRemember {
		return false
	}
	if m.busy {
		return true
	}
	switch m.focus {
	case focusRemember:
		m.rememberMe = !m.rememberMe
	case focusAutoLogin:
		m.autoLogin = !m.autoLogin
	case focusHeadless:
		m.headless = !m.headless
	default:
		return false
	}

	autoLogin, headless := m.autoLogin, m.headless
	err := m.ctrl.UpdateSettings(func(c *config.Config) {
		c.AutoLogin = autoLogin
		c.HeadlessMode = headless
	})
	if err != nil {
		m.lastError = err.Error()
	}
	return true
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.username, cmd = m.username.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) focusCount() int {
	if m.mode == ModeFull {
		return focusHeadless + 1
	}
	return focusRemember + 1
}

func (m *Model) applyFocus() {
	m.username.Blur()
	m.password.Blur()
	switch m.focus {
	case focusUsername:
		m.username.Focus()
	case focusPassword:
		m.password.Focus()
	}
}

// startLogin marks the model busy and returns the command running the
// login. The model itself is updated by the returned messages.
func (m *Model) startLogin() tea.Cmd {
	m.busy = true
	m.outcome = nil
	m.lastError = ""
	m.status = "Starting..."
	m.percent = 0

	req := portal.LoginRequest{
		Username:   m.username.Value(),
		Password:   m.password.Value(),
		RememberMe: m.rememberMe,
		Config:     m.login,
	}
	req.Config.Headless = m.headless

	ctx, ctrl := m.ctx, m.ctrl
	login := func() tea.Msg {
		outcome, err := ctrl.Login(ctx, req)
		return LoginDoneMsg{Outcome: outcome, Err: err}
	}
	return tea.Batch(login, m.spinner.Tick)
}
