package dto

import "time"

// TriggerRunRequest asks the engine to run one mall's batch over a time
// window.
type TriggerRunRequest struct {
	MallID      string    `json:"mall_id" binding:"required"`
	From        time.Time `json:"from" binding:"required"`
	To          time.Time `json:"to" binding:"required"`
	JourneyDate string    `json:"journey_date" binding:"required"`
}

// TriggerRunResponse acknowledges a run has been enqueued.
type TriggerRunResponse struct {
	RunID  string `json:"run_id"`
	MallID string `json:"mall_id"`
	Status string `json:"status"`
}

// RunEvent is the WebSocket message shape for both progress and
// completion notifications, distinguished by Type.
type RunEvent struct {
	Type   string `json:"type"` // run_progress, run_completed
	RunID  string `json:"run_id"`
	MallID string `json:"mall_id"`

	TargetsScored int `json:"targets_scored,omitempty"`
	TargetsTotal  int `json:"targets_total,omitempty"`

	LinkedCount     int     `json:"linked_count,omitempty"`
	AmbiguousCount  int     `json:"ambiguous_count,omitempty"`
	NewVisitorCount int     `json:"new_visitor_count,omitempty"`
	JourneyCount    int     `json:"journey_count,omitempty"`
	OrphanCount     int     `json:"orphan_count,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
}
