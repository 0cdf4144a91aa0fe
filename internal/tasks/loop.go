package tasks

import (
	"fmt"
	"time"
)

// Loop names used by the dashboard views.
const (
	DetailLoop     = "detail"
	CollectionLoop = "collection"
	IndicatorLoop  = "indicator"
)

// Ticket identifies one tick of one [Loop].
//
// Gen changes on every start and stop, Seq increases with every tick of a generation.
type Ticket struct {
	Loop string
	Gen  uint64
	Seq  uint64
}

func (t Ticket) String() string {
	return fmt.Sprintf("%s#%d.%d", t.Loop, t.Gen, t.Seq)
}

// Loop is the lifecycle of one recurring poll.
//
// It does no I/O and owns no goroutine: callers ask it for tickets, fire requests
// tagged with them and hand the tickets back through [Loop.Accept] when the
// responses arrive. A response is applied only if its ticket belongs to the
// current generation and is newer than the last applied one, so stopped loops
// and out-of-order responses never overwrite newer state.
//
// Loop is not safe for concurrent use; [Poller] and the TUI serialise access.
type Loop struct {
	name     string
	interval time.Duration
	running  bool
	gen      uint64
	seq      uint64
	applied  uint64
}

// NewLoop creates a stopped loop.
func NewLoop(name string, interval time.Duration) *Loop {
	return &Loop{name: name, interval: interval}
}

func (l *Loop) Name() string            { return l.name }
func (l *Loop) Interval() time.Duration { return l.interval }
func (l *Loop) Running() bool           { return l.running }

// Start begins a new generation and returns its first ticket, to be fired immediately.
//
// Starting a running loop restarts it: tickets of the previous generation become stale.
func (l *Loop) Start() Ticket {
	l.gen++
	l.running = true
	l.seq = 1
	l.applied = 0
	return Ticket{Loop: l.name, Gen: l.gen, Seq: l.seq}
}

// Next issues the ticket following prev once the interval has elapsed.
//
// It returns false when the loop was stopped or restarted since prev was issued,
// or when prev is not the latest ticket, which ends that tick chain.
func (l *Loop) Next(prev Ticket) (Ticket, bool) {
	if !l.running || prev.Gen != l.gen || prev.Seq != l.seq {
		return Ticket{}, false
	}
	l.seq++
	return Ticket{Loop: l.name, Gen: l.gen, Seq: l.seq}, true
}

// Accept reports whether a response tagged with t may be applied and records it as applied.
func (l *Loop) Accept(t Ticket) bool {
	if !l.Current(t) || t.Seq <= l.applied {
		return false
	}
	l.applied = t.Seq
	return true
}

// Current reports whether t belongs to the running generation.
func (l *Loop) Current(t Ticket) bool {
	return l.running && t.Loop == l.name && t.Gen == l.gen
}

// Stop releases the loop. Every outstanding ticket becomes stale. Stopping a stopped loop is a no-op.
func (l *Loop) Stop() {
	if !l.running {
		return
	}
	l.running = false
	l.gen++
}
