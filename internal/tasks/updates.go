package tasks

import "fmt"

// ProgressUpdate represents a progress event during a bulk operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	JobID   string // Job the update refers to, if any
	Message string // Human-readable message for display
	Err     error  // Set when the step failed
}

// Operation phase enumeration
type Phase int

const (
	PhasePause Phase = iota
	PhaseResume
	PhaseDownload
)

func (p Phase) String() string {
	switch p {
	case PhasePause:
		return "pause"
	case PhaseResume:
		return "resume"
	case PhaseDownload:
		return "download"
	default:
		return ""
	}
}

// verb is the user-facing action name of a phase.
func (p Phase) verb() string {
	switch p {
	case PhasePause:
		return "Paused"
	case PhaseResume:
		return "Resumed"
	case PhaseDownload:
		return "Started"
	default:
		return "Processed"
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func queuedUpdate(phase Phase, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Total:   total,
		Message: fmt.Sprintf("Queued %d jobs to %s...", total, phase),
	}
}

func jobDoneUpdate(phase Phase, step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		JobID:   id,
		Message: fmt.Sprintf("[%d/%d] ✓ %s %s", step, total, phase.verb(), id),
	}
}

func jobFailedUpdate(phase Phase, step, total int, id string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		JobID:   id,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, id, err),
		Err:     err,
	}
}
