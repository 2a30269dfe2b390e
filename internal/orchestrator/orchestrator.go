// Package orchestrator runs one announce pass over one group: browser,
// login, session gate, discovery, the per-event loop, then the report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/djlord-it/easy-announce/internal/announce"
	"github.com/djlord-it/easy-announce/internal/browser"
	"github.com/djlord-it/easy-announce/internal/discovery"
	"github.com/djlord-it/easy-announce/internal/domain"
	"github.com/djlord-it/easy-announce/internal/locator"
	"github.com/djlord-it/easy-announce/internal/metrics"
	"github.com/djlord-it/easy-announce/internal/notify"
	"github.com/djlord-it/easy-announce/internal/outcome"
	"github.com/djlord-it/easy-announce/internal/runctx"
	"github.com/djlord-it/easy-announce/internal/session"
	"github.com/djlord-it/easy-announce/internal/window"
)

// Launcher provides a ready browser session.
type Launcher interface {
	Launch(ctx context.Context) (browser.Browser, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (browser.Browser, error)

func (f LauncherFunc) Launch(ctx context.Context) (browser.Browser, error) { return f(ctx) }

// Announcer drives one event to an outcome.
type Announcer interface {
	Announce(ctx context.Context, rc *runctx.RunContext, ev domain.EventRecord) domain.AnnouncementOutcome
}

// History persists finished runs.
type History interface {
	RecordRun(ctx context.Context, run domain.RunRecord) error
}

// Analytics keeps aggregate counters.
type Analytics interface {
	RecordRun(ctx context.Context, groupURL string, at time.Time, sum domain.RunSummary, fatal bool) error
}

type Config struct {
	GroupURL      string
	LoginMode     session.Mode
	Credentials   session.Credentials
	WindowDays    int
	Budgets       runctx.Budgets
	Locators      locator.Catalog
	ScreenshotDir string
	LogPath       string

	// SideEffectTimeout bounds each best-effort write at run end.
	SideEffectTimeout time.Duration
}

// Result is what a run produced. Fatal is set when the run stopped before
// or during discovery; such a run was already reported.
type Result struct {
	Record domain.RunRecord
	Fatal  error
}

type Orchestrator struct {
	config    Config
	launcher  Launcher
	announcer Announcer
	prompter  session.Prompter
	notifier  notify.Notifier
	metrics   metrics.Sink
	history   History
	analytics Analytics
	clock     func() time.Time
}

func New(config Config, launcher Launcher) *Orchestrator {
	if config.SideEffectTimeout <= 0 {
		config.SideEffectTimeout = 5 * time.Second
	}
	o := &Orchestrator{
		config:   config,
		launcher: launcher,
		metrics:  metrics.NewNoopSink(),
		clock:    time.Now,
	}
	o.announcer = announce.NewProtocol(window.New(config.WindowDays, o.now))
	return o
}

func (o *Orchestrator) now() time.Time { return o.clock() }

// WithClock overrides the time source for the window and timestamps.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// WithAnnouncer replaces the per-event protocol.
func (o *Orchestrator) WithAnnouncer(a Announcer) *Orchestrator {
	o.announcer = a
	return o
}

// WithPrompter sets the console prompter used by manual login.
func (o *Orchestrator) WithPrompter(p session.Prompter) *Orchestrator {
	o.prompter = p
	return o
}

// WithNotifier sets the failure report channel.
func (o *Orchestrator) WithNotifier(n notify.Notifier) *Orchestrator {
	o.notifier = n
	return o
}

// WithMetrics attaches a metrics sink.
func (o *Orchestrator) WithMetrics(sink metrics.Sink) *Orchestrator {
	o.metrics = sink
	return o
}

// WithHistory attaches a run history store.
func (o *Orchestrator) WithHistory(h History) *Orchestrator {
	o.history = h
	return o
}

// WithAnalytics attaches an aggregate counter store.
func (o *Orchestrator) WithAnalytics(a Analytics) *Orchestrator {
	o.analytics = a
	return o
}

// Run performs one pass. The returned error is non-nil only when no browser
// could be launched or the context was cancelled; every other failure is
// reported through the notifier and described by Result.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	start := o.clock()

	b, err := o.launcher.Launch(ctx)
	if err != nil {
		err = fmt.Errorf("launch browser: %w", err)
		rec := domain.RunRecord{ID: uuid.New(), GroupURL: o.config.GroupURL, StartedAt: start, Result: domain.RunFatal, FatalReason: err.Error()}
		rec.Notified = o.report(ctx, nil, rec, fatalMessage(err))
		o.finish(ctx, &rec)
		return Result{Record: rec, Fatal: err}, err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Printf("orchestrator: browser close: %v", err)
		}
	}()

	rc := runctx.New(o.config.GroupURL, b, o.config.Locators, o.config.Budgets, o.config.ScreenshotDir)
	rc.Resolver.WithObserver(o.metrics.LocatorMatched)

	rec := domain.RunRecord{ID: rc.ID, GroupURL: o.config.GroupURL, StartedAt: start}
	log.Printf("orchestrator: run=%s started group=%s window_days=%d", rc.ID, o.config.GroupURL, o.config.WindowDays)

	res, err := o.run(ctx, rc, &rec)
	o.finish(ctx, &rec)
	res.Record = rec
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, rc *runctx.RunContext, rec *domain.RunRecord) (Result, error) {
	if err := session.Login(ctx, rc, o.config.LoginMode, o.config.Credentials, o.prompter); err != nil {
		return o.fatal(ctx, rc, rec, fmt.Errorf("login: %w", err))
	}

	if _, err := session.Check(ctx, rc); err != nil {
		return o.fatal(ctx, rc, rec, err)
	}

	records, err := discovery.ListEvents(ctx, rc)
	if err != nil {
		return o.fatal(ctx, rc, rec, err)
	}
	o.warnOrder(rc, records)

	for i, ev := range records {
		if err := ctx.Err(); err != nil {
			return o.aborted(rc, rec, err)
		}

		out := o.announceOne(ctx, rc, ev)
		rc.Tally.Record(out)
		o.metrics.EventOutcome(string(out.Kind))

		if out.OutOfWindow() {
			log.Printf("orchestrator: run=%s event %d/%d out of window, %d later events not visited",
				rc.ID, i+1, len(records), len(records)-i-1)
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return o.aborted(rc, rec, err)
	}

	sum := rc.Tally.Summary()
	rec.Summary = sum
	rec.Outcomes = rc.Tally.Outcomes()
	rec.Result = domain.RunClean

	log.Printf("orchestrator: run=%s summary processed=%d announced=%d already_announced=%d failed=%d skipped=%d",
		rc.ID, sum.Processed, sum.Announced, sum.AlreadyAnnounced, sum.Failed, sum.Skipped)

	if outcome.ShouldNotify(sum) {
		rec.Result = domain.RunFailures
		rec.Notified = o.report(ctx, rc, *rec, outcome.Message(sum))
	}
	return Result{}, nil
}

// announceOne converts a panic inside the protocol into a Failed outcome.
func (o *Orchestrator) announceOne(ctx context.Context, rc *runctx.RunContext, ev domain.EventRecord) (out domain.AnnouncementOutcome) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("orchestrator: run=%s panic on %s: %v\n%s", rc.ID, ev.URL, p, debug.Stack())
			rc.Capture(ctx, "panic")
			out = domain.Failed(ev, domain.ResolvedDate{SourceText: ev.RawDateText}, fmt.Sprintf("panic: %v", p))
		}
	}()
	return o.announcer.Announce(ctx, rc, ev)
}

func (o *Orchestrator) fatal(ctx context.Context, rc *runctx.RunContext, rec *domain.RunRecord, err error) (Result, error) {
	if ctx.Err() != nil {
		return o.aborted(rc, rec, ctx.Err())
	}
	log.Printf("orchestrator: run=%s stopped: %v", rc.ID, err)
	rc.Capture(ctx, "fatal")

	rec.Result = domain.RunFatal
	rec.FatalReason = err.Error()
	rec.Notified = o.report(ctx, rc, *rec, fatalMessage(err))
	return Result{Fatal: err}, nil
}

func (o *Orchestrator) aborted(rc *runctx.RunContext, rec *domain.RunRecord, err error) (Result, error) {
	log.Printf("orchestrator: run=%s aborted: %v", rc.ID, err)
	rec.Result = domain.RunAborted
	rec.Summary = rc.Tally.Summary()
	rec.Outcomes = rc.Tally.Outcomes()
	return Result{}, err
}

// report sends the single notification of a run.
func (o *Orchestrator) report(ctx context.Context, rc *runctx.RunContext, rec domain.RunRecord, message string) bool {
	r := notify.Report{
		RunID:    rec.ID,
		GroupURL: rec.GroupURL,
		Message:  message,
		LogPath:  o.config.LogPath,
		Fatal:    rec.Result == domain.RunFatal,
		Summary:  rec.Summary,
	}
	if rc != nil {
		r.ScreenshotPath = rc.LastScreenshot()
	}
	return notify.Deliver(context.WithoutCancel(ctx), o.notifier, r, o.metrics)
}

// finish records the run in every configured side channel. Failures are
// logged only.
func (o *Orchestrator) finish(ctx context.Context, rec *domain.RunRecord) {
	rec.FinishedAt = o.clock()
	o.metrics.RunCompleted(string(rec.Result), rec.FinishedAt.Sub(rec.StartedAt))

	base := context.WithoutCancel(ctx)
	if o.history != nil {
		hctx, cancel := context.WithTimeout(base, o.config.SideEffectTimeout)
		if err := o.history.RecordRun(hctx, *rec); err != nil {
			log.Printf("orchestrator: run=%s history write failed: %v", rec.ID, err)
		}
		cancel()
	}
	if o.analytics != nil {
		actx, cancel := context.WithTimeout(base, o.config.SideEffectTimeout)
		if err := o.analytics.RecordRun(actx, rec.GroupURL, rec.StartedAt, rec.Summary, rec.Result == domain.RunFatal); err != nil {
			log.Printf("orchestrator: run=%s analytics write failed: %v", rec.ID, err)
		}
		cancel()
	}
}

// warnOrder flags listings whose dates go backwards. Early exit assumes
// ascending order; an inversion means later events may be skipped.
func (o *Orchestrator) warnOrder(rc *runctx.RunContext, records []domain.EventRecord) {
	raws := make([]string, len(records))
	for i, r := range records {
		raws[i] = r.RawDateText
	}
	now := o.clock()
	parse := func(raw string) (time.Time, bool) {
		d, err := window.Parse(raw, now)
		return d.Instant, err == nil
	}
	for _, inv := range discovery.CheckOrder(raws, parse) {
		log.Printf("discovery: run=%s WARNING listing not chronological at position %d (%q after %q); early exit may skip events",
			rc.ID, inv.Index+1, inv.NextRaw, inv.PrevRaw)
	}
}

func fatalMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "Run stopped: the browser session is not logged in. Log in again (manual login mode) and re-run.\n"
	case errors.Is(err, session.ErrNotOrganizer):
		return "Run stopped: the logged-in account has no organizer rights on the group.\n"
	case errors.Is(err, discovery.ErrListingUnavailable):
		return fmt.Sprintf("Run stopped: the events listing could not be loaded.\n%v\n", err)
	default:
		return fmt.Sprintf("Run stopped: %v\n", err)
	}
}
