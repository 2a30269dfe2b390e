// Package outcome tallies per-event announcement outcomes and decides whether
// a run warrants a notification.
package outcome

import (
	"fmt"
	"strings"
	"sync"

	"github.com/djlord-it/easy-announce/internal/domain"
)

// Aggregator builds a RunSummary incrementally over one run.
type Aggregator struct {
	mu       sync.Mutex
	summary  domain.RunSummary
	outcomes []domain.AnnouncementOutcome
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Record adds one outcome to the tally.
func (a *Aggregator) Record(o domain.AnnouncementOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, o)
	apply(&a.summary, o)
}

// Summary returns a copy of the current tally.
func (a *Aggregator) Summary() domain.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.summary
	s.FailureDetails = append([]domain.FailureDetail(nil), a.summary.FailureDetails...)
	return s
}

// Outcomes returns the recorded outcomes in order.
func (a *Aggregator) Outcomes() []domain.AnnouncementOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AnnouncementOutcome(nil), a.outcomes...)
}

// Summarize folds a complete list of outcomes.
func Summarize(outcomes []domain.AnnouncementOutcome) domain.RunSummary {
	var s domain.RunSummary
	for _, o := range outcomes {
		apply(&s, o)
	}
	return s
}

func apply(s *domain.RunSummary, o domain.AnnouncementOutcome) {
	switch o.Kind {
	case domain.OutcomeSkipped:
		s.Skipped++
		return
	case domain.OutcomeAnnounced:
		s.Announced++
	case domain.OutcomeAlreadyAnnounced:
		s.AlreadyAnnounced++
	case domain.OutcomeFailed:
		s.Failed++
		s.FailureDetails = append(s.FailureDetails, domain.FailureDetail{
			Date:   o.Event.RawDateText,
			URL:    o.Event.URL,
			Reason: o.Reason,
		})
	}
	s.Processed++
}

// ShouldNotify reports whether the summary warrants a notification. Only
// failures do; a clean run stays quiet whether or not anything was announced.
func ShouldNotify(s domain.RunSummary) bool {
	return s.Failed > 0
}

// Message renders the human-readable failure summary sent to the operator.
func Message(s domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d processed events failed to announce (announced=%d, already_announced=%d).\n",
		s.Failed, s.Processed, s.Announced, s.AlreadyAnnounced)
	for _, d := range s.FailureDetails {
		fmt.Fprintf(&b, "- %s: %s", d.Date, d.Reason)
		if d.URL != "" {
			fmt.Fprintf(&b, " (%s)", d.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}
