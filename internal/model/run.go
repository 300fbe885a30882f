package model

import "time"

// RunStatus is the state machine for a unit of work. A run moves
// pending -> processing -> committed | aborted; an aborted run leaves all
// previously committed state untouched.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCommitted  RunStatus = "committed"
	RunAborted    RunStatus = "aborted"
)

// Run is the audit record for one batch pass of a component.
type Run struct {
	ID         string
	Component  string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    string
}
