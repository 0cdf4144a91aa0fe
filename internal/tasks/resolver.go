package tasks

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/shared"
	"github.com/desertthunder/trackui/internal/toast"
)

// IndicatorState is the resolved global state, in descending priority.
type IndicatorState string

const (
	StateTimeout IndicatorState = "timeout"
	StateRunning IndicatorState = "running"
	StateActive  IndicatorState = "active"
	StateReady   IndicatorState = "ready"
)

// Action labels of the sync control.
const (
	ActionSyncAll        = "Sync All"
	ActionSyncing        = "Syncing..."
	ActionSyncingTimeout = "Syncing (Timeout)..."
)

// TimeoutNoticeDuration is how long the slow-account warning stays up.
const TimeoutNoticeDuration = 8000 * time.Millisecond

// Notice is a side-channel message the indicator wants shown once.
type Notice struct {
	Message  string
	Level    toast.Level
	Duration time.Duration
}

// Indicator is the single merged status shown in the header.
type Indicator struct {
	State         IndicatorState
	Label         string
	Tooltip       string
	ActionLabel   string
	ActionEnabled bool
	ActiveCount   int
	Aggregate     int // mean percent over active jobs
	Badge         int
	BadgeVisible  bool
	Notice        *Notice
}

// Resolve merges the job collection and sync state into one [Indicator].
//
// The first matching state wins: timeout, running, active, ready.
// Resolve is pure; equal inputs give equal outputs.
func Resolve(c models.Collection, s models.SyncState) Indicator {
	s = s.Normalize()
	active := c.ActiveJobs()

	ind := Indicator{ActiveCount: len(active), Aggregate: aggregate(active)}
	switch {
	case len(active) > 0:
		ind.Badge, ind.BadgeVisible = len(active), true
	case len(c.Jobs) > 0:
		ind.Badge, ind.BadgeVisible = c.Completed, true
	}

	switch {
	case s.Running && s.CurrentTimeout:
		ind.State = StateTimeout
		ind.Label = "Timeout: " + orDefault(s.CurrentUser, "unknown")
		ind.ActionLabel = ActionSyncingTimeout
		if s.CurrentUser != "" {
			ind.Notice = &Notice{
				Message:  TimeoutNotice(s.CurrentUser),
				Level:    toast.Warning,
				Duration: TimeoutNoticeDuration,
			}
		}
	case s.Running:
		ind.State = StateRunning
		ind.Label = "Syncing " + orDefault(s.CurrentUser, "...")
		ind.ActionLabel = ActionSyncing
	case len(active) > 0:
		ind.State = StateActive
		ind.ActionLabel, ind.ActionEnabled = ActionSyncAll, true
		if refresh, ok := findJob(active, models.RefreshAvatarsJobID); ok {
			ind.Label = fmt.Sprintf("Refreshing Avatars (%d%%)", shared.ClampPercent(refresh.Progress))
		} else {
			ind.Label = fmt.Sprintf("Downloading (%d)...", len(active))
		}
	default:
		ind.State = StateReady
		ind.ActionLabel, ind.ActionEnabled = ActionSyncAll, true
		ind.Label = "Ready"
		if n := len(s.TimeoutUsers); n > 0 {
			ind.Label = fmt.Sprintf("Ready (%d timeouts)", n)
			ind.Tooltip = "Timed out users: " + strings.Join(s.TimeoutUsers, ", ")
		}
	}
	return ind
}

// TimeoutNotice is the warning shown when user's sync step runs long.
func TimeoutNotice(user string) string {
	return user + " is taking longer than expected"
}

// Notifier shows deduplicated notices.
type Notifier interface {
	NotifyOnce(message string, level toast.Level, duration time.Duration) (toast.Toast, bool)
}

// Resolver resolves indicators and delivers their notices.
type Resolver struct {
	notifier Notifier
}

// NewResolver creates a [Resolver]. A nil notifier drops notices.
func NewResolver(n Notifier) *Resolver {
	return &Resolver{notifier: n}
}

// Apply resolves the indicator and shows its notice unless an identical one is already visible.
func (r *Resolver) Apply(c models.Collection, s models.SyncState) Indicator {
	ind := Resolve(c, s)
	if ind.Notice != nil && r.notifier != nil {
		r.notifier.NotifyOnce(ind.Notice.Message, ind.Notice.Level, ind.Notice.Duration)
	}
	return ind
}

func aggregate(active []models.Job) int {
	if len(active) == 0 {
		return 0
	}
	sum := 0
	for _, j := range active {
		sum += shared.ClampPercent(j.Progress)
	}
	return int(math.Round(float64(sum) / float64(len(active))))
}

func findJob(jobs []models.Job, id string) (models.Job, bool) {
	for _, j := range jobs {
		if j.ID == id {
			return j, true
		}
	}
	return models.Job{}, false
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
