package progress

import "time"

// RunID uniquely identifies one pipeline run; it also tags the run's log lines.
type RunID string

// State is the lifecycle position of a run.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Run is the tracked state of one manifest within a batch.
type Run struct {
	ID                 RunID      `json:"id"`
	Manifest           string     `json:"manifest"`
	Output             string     `json:"output,omitempty"`
	State              State      `json:"state"`
	SegmentsTotal      int        `json:"segments_total"`
	SegmentsDownloaded int        `json:"segments_downloaded"`
	SegmentsFailed     int        `json:"segments_failed"`
	Bytes              int64      `json:"bytes"`
	Error              string     `json:"error,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether the run reached a terminal state.
func (r *Run) Done() bool {
	return r.State == StateSucceeded || r.State == StateFailed
}
