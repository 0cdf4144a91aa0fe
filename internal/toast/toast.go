// package toast implements ephemeral, self-dismissing notifications.
//
// A [Notifier] holds every live [Toast]. Toasts expire after their duration
// or go away early when the user interacts with them or closes them.
// Time is read from an injected [Clock] so expiry is deterministic in tests.
package toast

import (
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/trackui/internal/shared"
)

// Level is the severity of a toast.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

// DefaultDuration applies when a toast is created with a zero duration.
const DefaultDuration = 5000 * time.Millisecond

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a level name to a [Level], defaulting to [Info].
func ParseLevel(s string) Level {
	switch s {
	case "success":
		return Success
	case "warning":
		return Warning
	case "error":
		return Error
	default:
		return Info
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// Toast is one visible notice.
type Toast struct {
	ID        string
	Message   string
	Level     Level
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the toast's lifetime has elapsed at now.
func (t Toast) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Notifier is safe for concurrent use.
type Notifier struct {
	mu       sync.Mutex
	clock    Clock
	fallback time.Duration
	toasts   []Toast
}

// NewNotifier creates a [Notifier]. A nil clock uses [SystemClock]; a zero fallback uses [DefaultDuration].
func NewNotifier(clock Clock, fallback time.Duration) *Notifier {
	if clock == nil {
		clock = SystemClock
	}
	if fallback <= 0 {
		fallback = DefaultDuration
	}
	return &Notifier{clock: clock, fallback: fallback}
}

// Notify shows message for duration (the notifier default when zero) and returns the new toast.
func (n *Notifier) Notify(message string, level Level, duration time.Duration) Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.push(message, level, duration)
}

// NotifyOnce behaves like [Notifier.Notify] unless a visible toast already carries message.
//
// The second return value is false when the notice was suppressed.
func (n *Notifier) NotifyOnce(message string, level Level, duration time.Duration) (Toast, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clock.Now()
	for _, t := range n.toasts {
		if !t.Expired(now) && t.Message == message {
			return t, false
		}
	}
	return n.push(message, level, duration), true
}

func (n *Notifier) push(message string, level Level, duration time.Duration) Toast {
	if duration <= 0 {
		duration = n.fallback
	}
	now := n.clock.Now()
	t := Toast{
		ID:        shared.GenerateID(),
		Message:   message,
		Level:     level,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
	n.toasts = append(n.toasts, t)
	return t
}

// Interact dismisses the toast early, as a click on its body does.
func (n *Notifier) Interact(id string) bool {
	return n.Close(id)
}

// Close removes exactly the toast with id. It reports whether one was removed.
func (n *Notifier) Close(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	i := slices.IndexFunc(n.toasts, func(t Toast) bool { return t.ID == id })
	if i < 0 {
		return false
	}
	n.toasts = slices.Delete(n.toasts, i, i+1)
	return true
}

// Visible returns unexpired toasts at now, oldest first.
func (n *Notifier) Visible(now time.Time) []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []Toast
	for _, t := range n.toasts {
		if !t.Expired(now) {
			out = append(out, t)
		}
	}
	return out
}

// Prune drops expired toasts and returns how many were removed.
func (n *Notifier) Prune(now time.Time) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	before := len(n.toasts)
	n.toasts = slices.DeleteFunc(n.toasts, func(t Toast) bool { return t.Expired(now) })
	return before - len(n.toasts)
}

// Now returns the notifier's current time.
func (n *Notifier) Now() time.Time {
	return n.clock.Now()
}
