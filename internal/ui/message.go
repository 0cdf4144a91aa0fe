package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trackui/internal/models"
	"github.com/desertthunder/trackui/internal/services"
	"github.com/desertthunder/trackui/internal/tasks"
)

// MsgKind enumerates the results of user-triggered work.
type MsgKind int

// Msg carries the result of a user-triggered action (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
	_ tea.Msg = tickMsg{}
	_ tea.Msg = snapshotMsg{}
	_ tea.Msg = collectionMsg{}
	_ tea.Msg = progressMsg{}
)

const (
	MsgActionDone MsgKind = iota
	MsgBulkProgress
	MsgBulkDone
	MsgSchedulerFetched
	MsgJournaled
)

// actionOutcome is the payload of [MsgActionDone].
type actionOutcome struct {
	op     string
	result models.ActionResult
	err    error
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(op string, result models.ActionResult, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionOutcome{op: op, result: result, err: err}}
}

// bulkProgressMsg is the constructor for [MsgBulkProgress]
func bulkProgressMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgBulkProgress, data: update}
}

// bulkOutcome is the payload of [MsgBulkDone].
type bulkOutcome struct {
	phase  tasks.Phase
	ids    []string
	result *tasks.BulkResult
	err    error
}

// bulkDoneMsg is the constructor for [MsgBulkDone]
func bulkDoneMsg(phase tasks.Phase, ids []string, result *tasks.BulkResult, err error) Msg {
	return Msg{kind: MsgBulkDone, data: bulkOutcome{phase: phase, ids: ids, result: result, err: err}}
}

// schedulerOutcome is the payload of [MsgSchedulerFetched].
type schedulerOutcome struct {
	session *Session
	status  models.SchedulerStatus
	err     error
}

// schedulerFetchedMsg is the constructor for [MsgSchedulerFetched]
func schedulerFetchedMsg(s *Session, status models.SchedulerStatus, err error) Msg {
	return Msg{kind: MsgSchedulerFetched, data: schedulerOutcome{session: s, status: status, err: err}}
}

// journalOutcome is the payload of [MsgJournaled].
type journalOutcome struct {
	recorded int
	err      error
}

// journaledMsg is the constructor for [MsgJournaled]
func journaledMsg(recorded int, err error) Msg {
	return Msg{kind: MsgJournaled, data: journalOutcome{recorded: recorded, err: err}}
}

// tickMsg fires when a loop's interval elapses after ticket was issued.
type tickMsg struct {
	ticket tasks.Ticket
}

// snapshotMsg is an indicator poll response.
type snapshotMsg struct {
	ticket tasks.Ticket
	snap   services.Snapshot
	err    error
}

// collectionMsg is a downloads list poll response.
type collectionMsg struct {
	ticket     tasks.Ticket
	collection models.Collection
	err        error
}

// progressMsg is a job detail poll response.
type progressMsg struct {
	ticket   tasks.Ticket
	jobID    string
	progress models.Progress
	err      error
}
