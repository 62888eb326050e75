// Package notify sends desktop notifications for login outcomes.
package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/portal"
)

const (
	notificationsService = "org.freedesktop.Notifications"
	notificationsPath    = "/org/freedesktop/Notifications"
	notifyMethod         = notificationsService + ".Notify"

	// expireTimeout is in milliseconds; -1 lets the server decide.
	expireTimeout = int32(-1)
)

// Urgency levels defined by org.freedesktop.Notifications.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Kind selects the icon and urgency of a notification.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarning
	KindError
)

// Notification is a desktop notification.
type Notification struct {
	Title   string
	Message string
	Kind    Kind
	Icon    string
}

// caller is the part of dbus.BusObject used here.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DBusNotifier implements common.Notifier over the session bus.
type DBusNotifier struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	obj    caller
	lastID uint32
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier() (*DBusNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &DBusNotifier{
		conn: conn,
		obj:  conn.Object(notificationsService, notificationsPath),
	}, nil
}

// Notify implements common.Notifier.
func (n *DBusNotifier) Notify(title, message string) error {
	return n.Show(Notification{Title: title, Message: message})
}

// NotifyWithIcon implements common.Notifier.
func (n *DBusNotifier) NotifyWithIcon(title, message, icon string) error {
	return n.Show(Notification{Title: title, Message: message, Icon: icon})
}

// Show sends n, replacing the previous notification of this notifier.
func (n *DBusNotifier) Show(note Notification) error {
	icon := note.Icon
	if icon == "" {
		icon = iconFor(note.Kind)
	}
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgencyFor(note.Kind)),
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	call := n.obj.Call(notifyMethod, 0,
		common.AppName,
		n.lastID,
		icon,
		note.Title,
		note.Message,
		[]string{},
		hints,
		expireTimeout,
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}
	var id uint32
	if err := call.Store(&id); err == nil {
		n.lastID = id
	}
	return nil
}

// Close releases the bus connection.
func (n *DBusNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

func iconFor(kind Kind) string {
	switch kind {
	case KindSuccess:
		return "network-wireless"
	case KindWarning:
		return "dialog-warning"
	case KindError:
		return "dialog-error"
	default:
		return "network-wireless-acquiring"
	}
}

func urgencyFor(kind Kind) byte {
	switch kind {
	case KindError:
		return UrgencyCritical
	case KindWarning:
		return UrgencyNormal
	default:
		return UrgencyLow
	}
}

// ForOutcome builds the notification reporting a login outcome.
func ForOutcome(outcome portal.Outcome) Notification {
	switch outcome.Kind {
	case portal.KindSuccess, portal.KindAlreadyLoggedIn:
		return Notification{Title: "Logged in", Message: outcome.Message(), Kind: KindSuccess}
	case portal.KindConnectionError, portal.KindRedirectLoop:
		return Notification{Title: "Login problem", Message: outcome.Message(), Kind: KindWarning}
	default:
		return Notification{Title: "Login failed", Message: outcome.Message(), Kind: KindError}
	}
}

// Outcome shows the notification for outcome on n. Delivery errors are
// logged, never returned.
func Outcome(n common.Notifier, outcome portal.Outcome) {
	if n == nil {
		return
	}
	note := ForOutcome(outcome)
	if err := n.NotifyWithIcon(note.Title, note.Message, iconFor(note.Kind)); err != nil {
		common.LogWarn("Error showing notification: %v", err)
	}
}
