package ui

import (
	"context"
	"slices"

	"github.com/desertthunder/trackui/internal/tasks"
)

// Session is the state owned by one open modal.
//
// It is created when the modal opens and torn down when it closes, whichever
// way that happens. Nothing in it outlives the modal.
type Session struct {
	Modal ModalID
	JobID string      // detail modal only
	Loop  *tasks.Loop // nil for modals without a poll

	ctx       context.Context
	cancel    context.CancelFunc
	selection map[string]bool
}

func newSession(parent context.Context, id ModalID, loop *tasks.Loop) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		Modal:     id,
		Loop:      loop,
		ctx:       ctx,
		cancel:    cancel,
		selection: map[string]bool{},
	}
}

// Context is cancelled when the session is torn down.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Toggle flips id in the selection set and reports whether it is now selected.
func (s *Session) Toggle(id string) bool {
	if s.selection[id] {
		delete(s.selection, id)
		return false
	}
	s.selection[id] = true
	return true
}

func (s *Session) Selected(id string) bool {
	return s.selection[id]
}

// Selection returns the selected ids in sorted order.
func (s *Session) Selection() []string {
	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Retain drops selected ids that are not in keep.
func (s *Session) Retain(keep map[string]bool) {
	for id := range s.selection {
		if !keep[id] {
			delete(s.selection, id)
		}
	}
}

func (s *Session) ClearSelection() {
	clear(s.selection)
}

// teardown stops the session's poll, cancels its requests and discards its selection.
func (s *Session) teardown() {
	if s.Loop != nil {
		s.Loop.Stop()
	}
	s.cancel()
	s.selection = map[string]bool{}
}
