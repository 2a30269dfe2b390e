package domain

type OutcomeKind string

const (
	OutcomeAnnounced        OutcomeKind = "announced"
	OutcomeAlreadyAnnounced OutcomeKind = "already_announced"
	OutcomeSkipped          OutcomeKind = "skipped"
	OutcomeFailed           OutcomeKind = "failed"
)

// Skip reasons.
const (
	SkipOutOfWindow = "out of window"
)

// AnnouncementOutcome is the result of running the announce protocol on one
// event. Values are never mutated after creation.
type AnnouncementOutcome struct {
	Kind   OutcomeKind
	Reason string

	Event EventRecord
	Date  ResolvedDate

	// Locator variants that matched, for diagnostics. Empty when not reached.
	BannerVariant  string
	ControlVariant string
}

func Announced(ev EventRecord, date ResolvedDate, banner, control string) AnnouncementOutcome {
	return AnnouncementOutcome{Kind: OutcomeAnnounced, Event: ev, Date: date, BannerVariant: banner, ControlVariant: control}
}

func AlreadyAnnounced(ev EventRecord, date ResolvedDate) AnnouncementOutcome {
	return AnnouncementOutcome{Kind: OutcomeAlreadyAnnounced, Event: ev, Date: date}
}

func Skipped(ev EventRecord, date ResolvedDate, reason string) AnnouncementOutcome {
	return AnnouncementOutcome{Kind: OutcomeSkipped, Reason: reason, Event: ev, Date: date}
}

func Failed(ev EventRecord, date ResolvedDate, reason string) AnnouncementOutcome {
	return AnnouncementOutcome{Kind: OutcomeFailed, Reason: reason, Event: ev, Date: date}
}

// OutOfWindow reports whether this outcome terminates the discovery loop.
func (o AnnouncementOutcome) OutOfWindow() bool {
	return o.Kind == OutcomeSkipped && o.Reason == SkipOutOfWindow
}
