package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yllada/portal-login/config"
	"github.com/yllada/portal-login/portal"
)

type fakeController struct {
	requests    []portal.LoginRequest
	outcome     portal.Outcome
	err         error
	connected   bool
	disconnects int
	settings    *config.Config
	saves       int
}

func (c *fakeController) Login(ctx context.Context, req portal.LoginRequest) (portal.Outcome, error) {
	c.requests = append(c.requests, req)
	if c.err == nil && c.outcome.OK() {
		c.connected = true
	}
	return c.outcome, c.err
}

func (c *fakeController) Disconnect() error {
	if !c.connected {
		return portal.ErrNotConnected
	}
	c.connected = false
	c.disconnects++
	return nil
}

func (c *fakeController) IsConnected() bool { return c.connected }

func (c *fakeController) UpdateSettings(fn func(*config.Config)) error {
	if c.settings == nil {
		c.settings = config.DefaultConfig()
	}
	fn(c.settings)
	c.saves++
	return nil
}

func newTestModel(mode Mode, ctrl *fakeController, settings *config.Config) (Model, *int) {
	ctrl.settings = settings
	m := NewModel(context.Background(), mode, ctrl, settings, portal.DefaultLoginConfig())
	return m, &ctrl.saves
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(Model)
	}
	return m
}

func press(m Model, keyType tea.KeyType) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: keyType})
	return updated.(Model), cmd
}

// runLogin executes the login part of a batched command.
func runLogin(t *testing.T, cmd tea.Cmd) LoginDoneMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatal("expected a batch command")
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if done, ok := c().(LoginDoneMsg); ok {
			return done
		}
	}
	t.Fatal("batch did not contain the login command")
	return LoginDoneMsg{}
}

func TestNewModel_FocusesPasswordForSavedUser(t *testing.T) {
	m, _ := newTestModel(ModeMini, &fakeController{}, &config.Config{Username: "alice"})

	if m.focus != focusPassword {
		t.Errorf("focus = %d, want password", m.focus)
	}
	if m.username.Value() != "alice" {
		t.Errorf("username = %q, want alice", m.username.Value())
	}
}

func TestModel_SubmitsTypedCredentials(t *testing.T) {
	ctrl := &fakeController{outcome: portal.Success()}
	m, _ := newTestModel(ModeMini, ctrl, nil)

	m = typeText(m, "alice")
	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "s3cret")

	m, cmd := press(m, tea.KeyEnter)
	if !m.busy {
		t.Fatal("model should be busy after enter")
	}

	done := runLogin(t, cmd)
	if len(ctrl.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(ctrl.requests))
	}
	req := ctrl.requests[0]
	if req.Username != "alice" || req.Password != "s3cret" {
		t.Errorf("request credentials = %q/%q", req.Username, req.Password)
	}

	updated, _ := m.Update(done)
	m = updated.(Model)
	if m.busy {
		t.Error("model should not be busy after LoginDoneMsg")
	}
	if m.outcome == nil || !m.outcome.OK() {
		t.Errorf("outcome = %v, want success", m.outcome)
	}
	if m.password.Value() != "" {
		t.Error("password should be cleared after a successful login")
	}
	if !strings.Contains(m.View(), "Login successful") {
		t.Error("view should show the outcome message")
	}
}

func TestModel_EnterIgnoredWhileBusy(t *testing.T) {
	ctrl := &fakeController{outcome: portal.Success()}
	m, _ := newTestModel(ModeMini, ctrl, nil)
	m.busy = true

	_, cmd := press(m, tea.KeyEnter)
	if cmd != nil {
		t.Error("enter while busy should not start a login")
	}
}

func TestModel_StatusUpdates(t *testing.T) {
	m, _ := newTestModel(ModeMini, &fakeController{}, nil)
	m.busy = true

	updated, _ := m.Update(StatusMsg{Message: "Submitting credentials...", Progress: 80})
	m = updated.(Model)
	if m.status != "Submitting credentials..." || m.percent != 80 {
		t.Errorf("status = %q (%d)", m.status, m.percent)
	}

	updated, _ = m.Update(StatusMsg{Message: "Error: Login failed: still on login page", Progress: -1})
	m = updated.(Model)
	if m.percent != 80 {
		t.Errorf("percent = %d, want 80 kept for messages without progress", m.percent)
	}
}

func TestModel_LoginError(t *testing.T) {
	m, _ := newTestModel(ModeMini, &fakeController{}, nil)
	m.busy = true

	updated, _ := m.Update(LoginDoneMsg{Err: portal.ErrCredentialsNotFound})
	m = updated.(Model)
	if m.lastError == "" {
		t.Fatal("lastError should be set")
	}
	if !strings.Contains(m.View(), "credentials not found") {
		t.Error("view should show the error")
	}
}

func TestModel_FullModeToggles(t *testing.T) {
	settings := &config.Config{}
	m, saves := newTestModel(ModeFull, &fakeController{outcome: portal.Success()}, settings)

	// username -> password -> remember -> auto login -> headless
	for i := 0; i < 4; i++ {
		m, _ = press(m, tea.KeyTab)
	}
	if m.focus != focusHeadless {
		t.Fatalf("focus = %d, want headless", m.focus)
	}

	m, _ = press(m, tea.KeySpace)
	if !m.headless || !settings.HeadlessMode {
		t.Error("space should toggle headless and update the settings")
	}
	if *saves != 1 {
		t.Errorf("saves = %d, want 1", *saves)
	}

	m, cmd := press(m, tea.KeyEnter)
	runLogin(t, cmd)
	ctrl := m.ctrl.(*fakeController)
	if !ctrl.requests[0].Config.Headless {
		t.Error("login should use the headless choice")
	}

	// Tab wraps back to the username field.
	m, _ = press(m, tea.KeyTab)
	if m.focus != focusUsername {
		t.Errorf("focus = %d, want username after wrap", m.focus)
	}
}

func TestModel_MiniModeHasNoSettingsToggles(t *testing.T) {
	m, _ := newTestModel(ModeMini, &fakeController{}, nil)
	if m.focusCount() != focusRemember+1 {
		t.Errorf("focusCount = %d", m.focusCount())
	}
	if strings.Contains(m.View(), "Auto login") {
		t.Error("mini view should not render the auto login toggle")
	}
}

func TestModel_AutoLoginOnStart(t *testing.T) {
	settings := &config.Config{Username: "alice", RememberMe: true, AutoLogin: true}
	ctrl := &fakeController{outcome: portal.AlreadyLoggedIn()}
	m, _ := newTestModel(ModeMini, ctrl, settings)

	batch, ok := m.Init()().(tea.BatchMsg)
	if !ok {
		t.Fatal("Init should batch the auto login")
	}
	var auto tea.Msg
	for _, c := range batch {
		if msg, ok := c().(autoLoginMsg); ok {
			auto = msg
		}
	}
	if auto == nil {
		t.Fatal("Init did not schedule the auto login")
	}

	updated, cmd := m.Update(auto)
	m = updated.(Model)
	if !m.busy {
		t.Error("auto login should mark the model busy")
	}
	done := runLogin(t, cmd)
	if done.Outcome != portal.AlreadyLoggedIn() {
		t.Errorf("outcome = %v", done.Outcome)
	}
	if ctrl.requests[0].Username != "alice" || ctrl.requests[0].Password != "" {
		t.Error("auto login should leave the password to the saved credentials")
	}
}

func TestModel_Disconnect(t *testing.T) {
	ctrl := &fakeController{}
	m, _ := newTestModel(ModeMini, ctrl, nil)

	m, _ = press(m, tea.KeyCtrlD)
	if !strings.Contains(m.lastError, "no active session") {
		t.Errorf("lastError = %q", m.lastError)
	}

	ctrl.connected = true
	m.lastError = ""
	m, _ = press(m, tea.KeyCtrlD)
	if ctrl.disconnects != 1 || m.status != "Disconnected" {
		t.Errorf("disconnects = %d, status = %q", ctrl.disconnects, m.status)
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(ModeMini, &fakeController{}, nil)
	m, cmd := press(m, tea.KeyEsc)
	if !m.quitting || cmd == nil {
		t.Fatal("esc should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command should be tea.Quit")
	}
}

func TestModel_TogglesLockedWhileBusy(t *testing.T) {
	settings := &config.Config{}
	ctrl := &fakeController{outcome: portal.Success()}
	m, saves := newTestModel(ModeFull, ctrl, settings)

	for i := 0; i < 4; i++ {
		m, _ = press(m, tea.KeyTab)
	}
	m.busy = true

	m, _ = press(m, tea.KeySpace)
	if m.headless || settings.HeadlessMode {
		t.Error("space should not toggle while a login runs")
	}
	if *saves != 0 {
		t.Errorf("saves = %d, want 0 while busy", *saves)
	}

	updated, _ := m.Update(LoginDoneMsg{Outcome: portal.Success()})
	m = updated.(Model)
	m, _ = press(m, tea.KeySpace)
	if !m.headless || *saves != 1 {
		t.Errorf("headless = %v, saves = %d after the login finished", m.headless, *saves)
	}
}
