package ui

import "slices"

// ZBase is the stacking base; the entry at order n renders at ZBase+n+1.
const ZBase = 10000

// ModalID names an overlay surface.
type ModalID string

const (
	ModalDownloads ModalID = "downloads"
	ModalDetail    ModalID = "detail"
	ModalExternal  ModalID = "external"
	ModalScheduler ModalID = "scheduler"
)

// ModalEntry is one open overlay. Order is its position in the stack, 0 being the bottom.
type ModalEntry struct {
	ID    ModalID
	Order int
}

// ZIndex is the stacking order of the entry.
func (e ModalEntry) ZIndex() int {
	return ZBase + e.Order + 1
}

// ModalStack tracks open overlays in the order they were opened.
//
// An id appears at most once and every entry's order equals its position.
// The zero value is an empty stack.
type ModalStack struct {
	entries []ModalEntry
}

// Open pushes id on top of the stack and returns its entry.
//
// Opening an id that is already open leaves the stack untouched and returns the existing entry.
func (s *ModalStack) Open(id ModalID) (ModalEntry, bool) {
	if i := s.index(id); i >= 0 {
		return s.entries[i], false
	}
	e := ModalEntry{ID: id, Order: len(s.entries)}
	s.entries = append(s.entries, e)
	return e, true
}

// Close removes the entry matching id wherever it sits in the stack.
//
// Entries above it move down one position; their relative order is kept.
func (s *ModalStack) Close(id ModalID) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	for j := i; j < len(s.entries); j++ {
		s.entries[j].Order = j
	}
	return true
}

// CloseAll empties the stack and returns the closed ids, top first.
func (s *ModalStack) CloseAll() []ModalID {
	ids := make([]ModalID, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		ids = append(ids, s.entries[i].ID)
	}
	s.entries = nil
	return ids
}

// Top returns the most recently opened entry.
func (s *ModalStack) Top() (ModalEntry, bool) {
	if len(s.entries) == 0 {
		return ModalEntry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

func (s *ModalStack) IsOpen(id ModalID) bool {
	return s.index(id) >= 0
}

// ZIndex returns the stacking order of id, or false when it is not open.
func (s *ModalStack) ZIndex(id ModalID) (int, bool) {
	i := s.index(id)
	if i < 0 {
		return 0, false
	}
	return s.entries[i].ZIndex(), true
}

// Entries returns a copy of the stack, bottom first.
func (s *ModalStack) Entries() []ModalEntry {
	return slices.Clone(s.entries)
}

func (s *ModalStack) Depth() int {
	return len(s.entries)
}

func (s *ModalStack) index(id ModalID) int {
	return slices.IndexFunc(s.entries, func(e ModalEntry) bool { return e.ID == id })
}
