package ui

import (
	"testing"
	"time"

	"github.com/desertthunder/trackui/internal/tasks"
)

func TestModalStack(t *testing.T) {
	t.Run("Open assigns increasing order", func(t *testing.T) {
		var s ModalStack
		a, _ := s.Open(ModalDownloads)
		b, _ := s.Open(ModalDetail)

		if a.Order != 0 || b.Order != 1 {
			t.Errorf("expected orders 0 and 1, got %d and %d", a.Order, b.Order)
		}
		if a.ZIndex() != ZBase+1 || b.ZIndex() != ZBase+2 {
			t.Errorf("expected z-index %d and %d, got %d and %d", ZBase+1, ZBase+2, a.ZIndex(), b.ZIndex())
		}
		if top, _ := s.Top(); top.ID != ModalDetail {
			t.Errorf("expected detail on top, got %s", top.ID)
		}
	})

	t.Run("Open is idempotent", func(t *testing.T) {
		var s ModalStack
		s.Open(ModalDownloads)
		s.Open(ModalDetail)

		e, opened := s.Open(ModalDownloads)
		if opened {
			t.Error("expected reopen to report not opened")
		}
		if e.Order != 0 {
			t.Errorf("expected existing entry with order 0, got %d", e.Order)
		}
		if s.Depth() != 2 {
			t.Errorf("expected depth 2, got %d", s.Depth())
		}
	})

	t.Run("Close removes by identity", func(t *testing.T) {
		var s ModalStack
		s.Open(ModalDownloads)
		s.Open(ModalExternal)
		s.Open(ModalScheduler)

		if !s.Close(ModalExternal) {
			t.Fatal("expected external to close")
		}

		entries := s.Entries()
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].ID != ModalDownloads || entries[1].ID != ModalScheduler {
			t.Errorf("expected relative order kept, got %+v", entries)
		}
		for i, e := range entries {
			if e.Order != i {
				t.Errorf("expected order %d for %s, got %d", i, e.ID, e.Order)
			}
		}
		if s.Close(ModalExternal) {
			t.Error("expected closing a closed modal to report false")
		}
	})

	t.Run("no two entries share an order", func(t *testing.T) {
		var s ModalStack
		steps := []struct {
			open bool
			id   ModalID
		}{
			{true, ModalDownloads},
			{true, ModalDetail},
			{false, ModalDownloads},
			{true, ModalScheduler},
			{true, ModalDetail},
			{true, ModalDownloads},
			{false, ModalScheduler},
			{true, ModalExternal},
		}
		for _, step := range steps {
			if step.open {
				s.Open(step.id)
			} else {
				s.Close(step.id)
			}

			seen := map[int]bool{}
			ids := map[ModalID]bool{}
			for _, e := range s.Entries() {
				if seen[e.Order] {
					t.Fatalf("duplicate order %d in %+v", e.Order, s.Entries())
				}
				if ids[e.ID] {
					t.Fatalf("duplicate id %s in %+v", e.ID, s.Entries())
				}
				seen[e.Order], ids[e.ID] = true, true
			}
		}
	})

	t.Run("CloseAll returns top first", func(t *testing.T) {
		var s ModalStack
		s.Open(ModalDownloads)
		s.Open(ModalDetail)
		s.Open(ModalScheduler)

		ids := s.CloseAll()
		want := []ModalID{ModalScheduler, ModalDetail, ModalDownloads}
		if len(ids) != len(want) {
			t.Fatalf("expected %v, got %v", want, ids)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("expected %v, got %v", want, ids)
			}
		}
		if s.Depth() != 0 {
			t.Errorf("expected empty stack, got depth %d", s.Depth())
		}
		if _, ok := s.Top(); ok {
			t.Error("expected no top entry")
		}
	})

	t.Run("ZIndex of closed modal", func(t *testing.T) {
		var s ModalStack
		if _, ok := s.ZIndex(ModalDetail); ok {
			t.Error("expected no z-index for a closed modal")
		}
		s.Open(ModalDownloads)
		s.Open(ModalDetail)
		s.Close(ModalDownloads)
		if z, ok := s.ZIndex(ModalDetail); !ok || z != ZBase+1 {
			t.Errorf("expected z-index %d after renumbering, got %d", ZBase+1, z)
		}
	})
}

func TestSession(t *testing.T) {
	t.Run("selection", func(t *testing.T) {
		s := newSession(t.Context(), ModalDownloads, nil)

		if !s.Toggle("bob") || !s.Toggle("alice") {
			t.Fatal("expected toggles to select")
		}
		if s.Toggle("bob") {
			t.Error("expected second toggle to deselect")
		}
		s.Toggle("carol")

		got := s.Selection()
		if len(got) != 2 || got[0] != "alice" || got[1] != "carol" {
			t.Errorf("expected [alice carol], got %v", got)
		}

		s.Retain(map[string]bool{"carol": true})
		if s.Selected("alice") || !s.Selected("carol") {
			t.Errorf("expected only carol retained, got %v", s.Selection())
		}
	})

	t.Run("teardown", func(t *testing.T) {
		loop := tasks.NewLoop(tasks.CollectionLoop, time.Second)
		ticket := loop.Start()
		s := newSession(t.Context(), ModalDownloads, loop)
		s.Toggle("alice")

		s.teardown()

		if loop.Running() || loop.Accept(ticket) {
			t.Error("expected loop stopped and its tickets stale")
		}
		if s.Context().Err() == nil {
			t.Error("expected session context cancelled")
		}
		if len(s.Selection()) != 0 {
			t.Errorf("expected selection discarded, got %v", s.Selection())
		}
	})
}
