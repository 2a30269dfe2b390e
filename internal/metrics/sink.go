package metrics

import (
	"strings"
	"time"
)

// Sink defines the interface for recording run metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
type Sink interface {
	// Run metrics
	RunCompleted(result string, duration time.Duration) // result: clean, failures, fatal, aborted
	EventOutcome(outcome string)

	// UI drift: which locator variant served each lookup site
	LocatorMatched(site, variant string)

	// Notification metrics
	NotificationCompleted(channel, statusClass string)
}

// StatusClass constants for NotificationCompleted.
const (
	StatusClassSent            = "sent"
	StatusClass4xx             = "4xx"
	StatusClass5xx             = "5xx"
	StatusClassTimeout         = "timeout"
	StatusClassConnectionError = "connection_error"
	StatusClassOtherError      = "other_error"
)

// ClassifyStatus maps an HTTP status code and delivery error to a status class.
// A zero status code with a nil error is a non-HTTP channel that succeeded.
func ClassifyStatus(statusCode int, err error) string {
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
			return StatusClassTimeout
		}
		if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
			strings.Contains(msg, "network is unreachable") || strings.Contains(msg, "dial") {
			return StatusClassConnectionError
		}
		return StatusClassOtherError
	}

	switch {
	case statusCode == 0, statusCode >= 200 && statusCode < 300:
		return StatusClassSent
	case statusCode >= 400 && statusCode < 500:
		return StatusClass4xx
	case statusCode >= 500:
		return StatusClass5xx
	default:
		return StatusClassOtherError
	}
}
