package domain

import "time"

// EventRecord is one card extracted from the group's events listing.
type EventRecord struct {
	URL         string
	RawDateText string
}

// ResolvedDate is the parsed form of EventRecord.RawDateText.
// When ParseSucceeded is false, Instant is zero and the event is treated as
// inside the window.
type ResolvedDate struct {
	Instant        time.Time
	SourceText     string
	ParseSucceeded bool
}
