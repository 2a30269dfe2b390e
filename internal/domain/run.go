package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunResult classifies a whole run.
type RunResult string

const (
	// RunClean: every processed event ended without failure.
	RunClean RunResult = "clean"
	// RunFailures: at least one event failed; the operator was notified.
	RunFailures RunResult = "failures"
	// RunFatal: the run stopped before the event loop (session or listing).
	RunFatal RunResult = "fatal"
	// RunAborted: the process context was cancelled mid-run.
	RunAborted RunResult = "aborted"
)

// RunRecord is the persisted trace of one run.
type RunRecord struct {
	ID          uuid.UUID
	GroupURL    string
	StartedAt   time.Time
	FinishedAt  time.Time
	Result      RunResult
	FatalReason string
	Notified    bool
	Summary     RunSummary
	Outcomes    []AnnouncementOutcome
}
