package domain

// FailureDetail is one failed event as reported to the operator.
type FailureDetail struct {
	Date   string
	URL    string
	Reason string
}

// RunSummary tallies the outcomes of one run.
// Processed counts events that reached the announce protocol past the window
// filter; Skipped events are counted separately.
type RunSummary struct {
	Processed        int
	Announced        int
	AlreadyAnnounced int
	Skipped          int
	Failed           int

	FailureDetails []FailureDetail
}
