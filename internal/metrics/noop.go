package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) RunCompleted(result string, duration time.Duration) {}
func (n *NoopSink) EventOutcome(outcome string)                        {}
func (n *NoopSink) LocatorMatched(site, variant string)                {}
func (n *NoopSink) NotificationCompleted(channel, statusClass string)  {}
