// Package announce runs the per-event announce protocol: window check,
// navigation, banner, control, optional confirmation, classification.
package announce

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/djlord-it/easy-announce/internal/domain"
	"github.com/djlord-it/easy-announce/internal/locator"
	"github.com/djlord-it/easy-announce/internal/runctx"
)

// ReasonControlNotClickable is the failure reason when a banner rendered but
// none of its control variants could be clicked.
const ReasonControlNotClickable = "banner found, control not clickable"

// Window decides whether a raw listing date is actionable.
type Window interface {
	Resolve(raw string) (domain.ResolvedDate, bool)
}

// Protocol announces single events. It holds no per-event state, so one
// value is reused across the whole loop.
type Protocol struct {
	window Window
}

func NewProtocol(w Window) *Protocol {
	return &Protocol{window: w}
}

// Announce drives one event to an outcome. It never returns an error; every
// failure is folded into a Failed outcome and a screenshot is attempted.
// An out-of-window event returns Skipped without touching the browser.
func (p *Protocol) Announce(ctx context.Context, rc *runctx.RunContext, ev domain.EventRecord) domain.AnnouncementOutcome {
	date, inside := p.window.Resolve(ev.RawDateText)
	if !inside {
		log.Printf("announce: run=%s event %s (%s) outside window, stopping", rc.ID, ev.URL, ev.RawDateText)
		return domain.Skipped(ev, date, domain.SkipOutOfWindow)
	}

	out, err := p.drive(ctx, rc, ev, date)
	if err != nil {
		log.Printf("announce: run=%s event %s failed: %v", rc.ID, ev.URL, err)
		rc.Capture(ctx, "event-"+lastSegment(ev.URL))
		return domain.Failed(ev, date, err.Error())
	}
	if out.Kind == domain.OutcomeFailed {
		rc.Capture(ctx, "event-"+lastSegment(ev.URL))
	}
	return out
}

func (p *Protocol) drive(ctx context.Context, rc *runctx.RunContext, ev domain.EventRecord, date domain.ResolvedDate) (domain.AnnouncementOutcome, error) {
	log.Printf("announce: run=%s processing %s (%s)", rc.ID, ev.URL, ev.RawDateText)

	if err := rc.Browser.Navigate(ctx, ev.URL); err != nil {
		return domain.AnnouncementOutcome{}, fmt.Errorf("navigate: %w", err)
	}
	if err := rc.Settle(ctx); err != nil {
		return domain.AnnouncementOutcome{}, err
	}

	banner, err := rc.Resolver.First(ctx, locator.SiteBanner, rc.Browser, rc.Locators.Banner, rc.Budgets.Banner, locator.Visible)
	if errors.Is(err, locator.ErrNoMatch) {
		log.Printf("announce: run=%s no banner on %s, already announced", rc.ID, ev.URL)
		return domain.AlreadyAnnounced(ev, date), nil
	}
	if err != nil {
		return domain.AnnouncementOutcome{}, fmt.Errorf("banner: %w", err)
	}
	log.Printf("announce: run=%s banner found (variant=%s)", rc.ID, banner.Variant)

	control, err := rc.Resolver.First(ctx, locator.SiteAnnounceControl, banner.Element, rc.Locators.AnnounceControl, rc.Budgets.FastProbe, locator.Clickable)
	if errors.Is(err, locator.ErrNoMatch) {
		log.Printf("announce: run=%s banner on %s has no clickable control", rc.ID, ev.URL)
		return domain.Failed(ev, date, ReasonControlNotClickable), nil
	}
	if err != nil {
		return domain.AnnouncementOutcome{}, fmt.Errorf("control: %w", err)
	}
	if err := control.Element.Click(ctx); err != nil {
		return domain.AnnouncementOutcome{}, fmt.Errorf("click announce (variant=%s): %w", control.Variant, err)
	}
	log.Printf("announce: run=%s clicked announce (variant=%s)", rc.ID, control.Variant)

	if err := confirm(ctx, rc); err != nil {
		return domain.AnnouncementOutcome{}, err
	}

	log.Printf("announce: run=%s announced %s", rc.ID, ev.URL)
	return domain.Announced(ev, date, banner.Variant, control.Variant), nil
}

// confirm clicks the confirmation control when one shows up within the
// budget. Its absence is not an error.
func confirm(ctx context.Context, rc *runctx.RunContext) error {
	m, err := rc.Resolver.Await(ctx, locator.SiteConfirm, rc.Browser, rc.Locators.Confirm, rc.Budgets.Confirm, locator.Clickable)
	if errors.Is(err, locator.ErrNoMatch) {
		log.Printf("announce: run=%s no confirmation dialog, continuing", rc.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if err := m.Element.Click(ctx); err != nil {
		return fmt.Errorf("click confirm (variant=%s): %w", m.Variant, err)
	}
	log.Printf("announce: run=%s confirmed (variant=%s)", rc.ID, m.Variant)
	return rc.Settle(ctx)
}

func lastSegment(u string) string {
	end := len(u)
	for end > 0 && u[end-1] == '/' {
		end--
	}
	start := end
	for start > 0 && u[start-1] != '/' {
		start--
	}
	if start == end {
		return "unknown"
	}
	return u[start:end]
}
