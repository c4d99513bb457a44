package importrun

import "time"

type Mode string

const (
	ModeCurrent    Mode = "current"
	ModeHistorical Mode = "historical"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the audit entry of one import or backfill execution.
type Run struct {
	RunID          string
	Mode           Mode
	League         string
	Trigger        string
	Status         Status
	Inserted       int
	Updated        int
	SkippedFiles   int
	DroppedRecords int
	FailedRecords  int
	Message        string
	StartedAt      time.Time
	FinishedAt     *time.Time
	TraceID        string
}

func (r Run) Finished() bool {
	return r.FinishedAt != nil
}
