package models

import "encoding/json"

// SyncState is the global sync singleton.
//
// CurrentTimeout is only honored while Running is set; a stale flag on an idle sync is dropped on decode.
type SyncState struct {
	Running        bool
	CurrentUser    string
	CurrentTimeout bool
	TimeoutUsers   []string
	TimeoutCount   int
	LastSync       string
}

// Normalize enforces that a timeout can only be reported for a running sync.
func (s SyncState) Normalize() SyncState {
	if !s.Running {
		s.CurrentTimeout = false
	}
	return s
}

// UnmarshalJSON decodes the wire shape leniently.
func (s *SyncState) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*s = SyncState{
		Running:        f.boolean("running"),
		CurrentUser:    f.str("current_user"),
		CurrentTimeout: f.boolean("current_timeout"),
		TimeoutUsers:   f.strs("timeout_users"),
		TimeoutCount:   f.integer("timeout_count"),
		LastSync:       f.str("last_sync"),
	}.Normalize()
	return nil
}

// MarshalJSON encodes the sync state in the wire shape used by the dashboard API.
func (s SyncState) MarshalJSON() ([]byte, error) {
	var user, last any
	if s.CurrentUser != "" {
		user = s.CurrentUser
	}
	if s.LastSync != "" {
		last = s.LastSync
	}
	return json.Marshal(map[string]any{
		"running":         s.Running,
		"current_user":    user,
		"current_timeout": s.CurrentTimeout,
		"timeout_users":   nonNil(s.TimeoutUsers),
		"timeout_count":   s.TimeoutCount,
		"last_sync":       last,
	})
}

// ActionResult is the envelope returned by job control and trigger endpoints.
type ActionResult struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	DownloadID string `json:"download_id,omitempty"` // external downloads only
}

// UnmarshalJSON decodes the wire shape leniently.
func (r *ActionResult) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*r = ActionResult{
		Success:    f.boolean("success"),
		Error:      f.str("error"),
		Message:    f.str("message"),
		DownloadID: f.str("download_id"),
	}
	return nil
}

// SchedulerStatus is the read-only view of the server's sync schedule.
type SchedulerStatus struct {
	Enabled    bool     `json:"enabled"`
	Running    bool     `json:"running"`
	Frequency  string   `json:"frequency"`
	Time       string   `json:"time"`
	Day        int      `json:"day"`
	LastRun    string   `json:"last_run,omitempty"`
	NextRun    string   `json:"next_run,omitempty"`
	RecentLogs []string `json:"recent_logs"`
}

// UnmarshalJSON decodes the wire shape leniently.
func (s *SchedulerStatus) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*s = SchedulerStatus{
		Enabled:    f.boolean("enabled"),
		Running:    f.boolean("running"),
		Frequency:  f.str("frequency"),
		Time:       f.str("time"),
		Day:        f.integer("day"),
		LastRun:    f.str("last_run"),
		NextRun:    f.str("next_run"),
		RecentLogs: f.strs("recent_logs"),
	}
	return nil
}
