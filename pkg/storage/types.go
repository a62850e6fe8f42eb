package storage

import "time"

const (
	ChangeAdded         = "added"
	ChangeRecategorized = "recategorized"
	ChangeRemoved       = "removed"
)

// Change captures a single privilege change between two runs.
type Change struct {
	OccurredAt time.Time
	RunID      string

	Surface  string
	Name     string
	Category string
	// PreviousCategory is only set for recategorized privileges.
	PreviousCategory string
	ChangeType       string // added | recategorized | removed
}

// Run is one recorded sync.
type Run struct {
	ID             string
	StartedAt      time.Time
	PrivilegeCount int
	EndpointCount  int
	Changes        int
}

// RunResult is returned by RecordRun.
type RunResult struct {
	Run      Run
	Changes  []Change
	FirstRun bool
}
