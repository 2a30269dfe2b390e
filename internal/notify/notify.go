// Package notify delivers the operator failure report. The orchestrator
// decides whether and what to send; notifiers only deliver.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/djlord-it/easy-announce/internal/domain"
	"github.com/djlord-it/easy-announce/internal/metrics"
)

// Report is one failure report.
type Report struct {
	RunID          uuid.UUID
	GroupURL       string
	Message        string
	LogPath        string
	ScreenshotPath string
	Fatal          bool
	Summary        domain.RunSummary
}

type Notifier interface {
	// Name labels the channel in logs and metrics.
	Name() string
	Notify(ctx context.Context, r Report) error
}

// StatusError carries a non-2xx HTTP response from a channel.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, r Report) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Deliver sends r once through n and reports whether every channel
// accepted it. Failures and panics are logged, never retried, never
// returned. Multi is unpacked so each channel is counted separately.
func Deliver(ctx context.Context, n Notifier, r Report, sink metrics.Sink) bool {
	if n == nil {
		log.Printf("notify: run=%s no notification channel configured, report dropped", r.RunID)
		return false
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	if m, ok := n.(Multi); ok {
		if len(m) == 0 {
			log.Printf("notify: run=%s no notification channel configured, report dropped", r.RunID)
			return false
		}
		all := true
		for _, c := range m {
			if !Deliver(ctx, c, r, sink) {
				all = false
			}
		}
		return all
	}

	err := safeNotify(ctx, n, r)
	sink.NotificationCompleted(n.Name(), classify(err))
	if err != nil {
		log.Printf("notify: run=%s channel=%s delivery failed: %v", r.RunID, n.Name(), err)
		return false
	}
	log.Printf("notify: run=%s channel=%s report delivered", r.RunID, n.Name())
	return true
}

func classify(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return metrics.ClassifyStatus(se.Code, nil)
	}
	return metrics.ClassifyStatus(0, err)
}

func safeNotify(ctx context.Context, n Notifier, r Report) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return n.Notify(ctx, r)
}
