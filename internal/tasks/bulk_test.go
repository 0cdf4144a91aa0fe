package tasks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/trackui/internal/shared"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (r *recorder) action(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
	if r.fail[id] {
		return errors.New("Download not found or not active")
	}
	return nil
}

func TestRunBulk(t *testing.T) {
	t.Run("all succeed", func(t *testing.T) {
		rec := &recorder{}
		prog := make(chan ProgressUpdate, 10)

		res, err := RunBulk(context.Background(), prog, PhasePause, []string{"alice", "bob", "alice"}, rec.action, BulkOpts{RateLimit: 100})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Total != 2 || res.Succeeded != 2 || res.Failed != 0 {
			t.Errorf("unexpected result %+v", res)
		}

		slices.Sort(rec.calls)
		if !slices.Equal(rec.calls, []string{"alice", "bob"}) {
			t.Errorf("expected each job once, got %v", rec.calls)
		}

		close(prog)
		var updates []ProgressUpdate
		for u := range prog {
			updates = append(updates, u)
		}
		if len(updates) != 3 {
			t.Fatalf("expected queued plus 2 job updates, got %d", len(updates))
		}
		if updates[0].Phase != PhasePause || updates[0].Total != 2 {
			t.Errorf("unexpected first update %+v", updates[0])
		}
	})

	t.Run("partial failures", func(t *testing.T) {
		rec := &recorder{fail: map[string]bool{"bob": true}}
		res, err := RunBulk(context.Background(), nil, PhaseResume, []string{"alice", "bob", "carol"}, rec.action, BulkOpts{RateLimit: 100})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Succeeded != 2 || res.Failed != 1 {
			t.Errorf("expected 2 successes and 1 failure, got %+v", res)
		}

		i := slices.IndexFunc(res.Results, func(r JobResult) bool { return r.JobID == "bob" })
		if i < 0 || res.Results[i].Err == nil {
			t.Error("expected bob's failure to be recorded")
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		rec := &recorder{}
		if _, err := RunBulk(context.Background(), nil, PhasePause, []string{"", ""}, rec.action, BulkOpts{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("nil action", func(t *testing.T) {
		if _, err := RunBulk(context.Background(), nil, PhasePause, []string{"a"}, nil, BulkOpts{}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		rec := &recorder{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := RunBulk(ctx, nil, PhasePause, []string{"a", "b"}, rec.action, BulkOpts{RateLimit: 100})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if res == nil || res.Failed != 2 {
			t.Errorf("expected both jobs to fail, got %+v", res)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		rec := &recorder{}
		start := time.Now()
		if _, err := RunBulk(context.Background(), nil, PhasePause, []string{"a", "b", "c"}, rec.action, BulkOpts{RateLimit: 20}); err != nil {
			t.Fatal(err)
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("expected requests spaced by the limiter, took %v", elapsed)
		}
	})

	t.Run("non-blocking progress", func(t *testing.T) {
		rec := &recorder{}
		done := make(chan struct{})
		go func() {
			_, _ = RunBulk(context.Background(), make(chan ProgressUpdate), PhasePause, []string{"a"}, rec.action, BulkOpts{RateLimit: 100})
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("expected RunBulk not to block on an unread progress channel")
		}
	})
}
