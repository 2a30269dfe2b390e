package locator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/djlord-it/easy-announce/internal/browser"
)

// ErrNoMatch is returned when no variant of a set matched within its budget.
var ErrNoMatch = errors.New("locator: no variant matched")

// Finder is anything elements can be looked up in: a page or an element.
type Finder interface {
	Find(ctx context.Context, q browser.Query) ([]browser.Element, error)
}

// Accept decides whether a found element qualifies.
type Accept func(ctx context.Context, el browser.Element) (bool, error)

// Present accepts any element in the DOM.
func Present(context.Context, browser.Element) (bool, error) { return true, nil }

// Visible accepts displayed elements.
func Visible(ctx context.Context, el browser.Element) (bool, error) {
	return el.Displayed(ctx)
}

// Clickable accepts displayed and enabled elements.
func Clickable(ctx context.Context, el browser.Element) (bool, error) {
	ok, err := el.Displayed(ctx)
	if err != nil || !ok {
		return false, err
	}
	return el.Enabled(ctx)
}

// Match is the first element that satisfied a set, with the variant that
// produced it.
type Match struct {
	Site     string
	Variant  string
	Element  browser.Element
	Elements []browser.Element
}

// Observer is told about every successful match.
type Observer func(site, variant string)

// Resolver walks variant lists. Waiting is done by polling Find.
type Resolver struct {
	poll     time.Duration
	clock    func() time.Time
	observer Observer
}

func NewResolver(poll time.Duration) *Resolver {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	return &Resolver{poll: poll, clock: time.Now}
}

// WithObserver attaches a match observer (typically a metrics sink).
func (r *Resolver) WithObserver(o Observer) *Resolver {
	r.observer = o
	return r
}

// WithClock overrides the time source used for budgets.
func (r *Resolver) WithClock(clock func() time.Time) *Resolver {
	r.clock = clock
	return r
}

// First tries each variant in order, giving each its own perVariant budget,
// and returns the first element accept approves. Every variant is probed at
// least once even when perVariant is zero.
func (r *Resolver) First(ctx context.Context, site string, scope Finder, set Set, perVariant time.Duration, accept Accept) (Match, error) {
	for _, loc := range set {
		deadline := r.clock().Add(perVariant)
		for {
			el, err := r.probe(ctx, scope, loc, accept)
			if err != nil {
				return Match{}, err
			}
			if el != nil {
				r.observe(site, loc.Name)
				return Match{Site: site, Variant: loc.Name, Element: el, Elements: []browser.Element{el}}, nil
			}
			if !r.clock().Before(deadline) {
				break
			}
			if err := r.Sleep(ctx, r.poll); err != nil {
				return Match{}, err
			}
		}
	}
	return Match{}, ErrNoMatch
}

// Probe checks every variant once, without waiting, and returns all
// elements of the first variant that yields at least one acceptable element.
func (r *Resolver) Probe(ctx context.Context, site string, scope Finder, set Set, accept Accept) (Match, error) {
	for _, loc := range set {
		elems, err := scope.Find(ctx, loc.Query())
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, ctx.Err()
			}
			log.Printf("locator: site=%s variant=%s query error: %v", site, loc.Name, err)
			continue
		}
		var kept []browser.Element
		for _, el := range elems {
			ok, err := accept(ctx, el)
			if err == nil && ok {
				kept = append(kept, el)
			}
		}
		if len(kept) > 0 {
			r.observe(site, loc.Name)
			return Match{Site: site, Variant: loc.Name, Element: kept[0], Elements: kept}, nil
		}
	}
	return Match{}, ErrNoMatch
}

// Await repeats Probe until a variant matches or budget expires. Unlike
// First, the budget is shared by all variants, so a late-rendering later
// variant is still found.
func (r *Resolver) Await(ctx context.Context, site string, scope Finder, set Set, budget time.Duration, accept Accept) (Match, error) {
	deadline := r.clock().Add(budget)
	for {
		m, err := r.Probe(ctx, site, scope, set, accept)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			return Match{}, err
		}
		if !r.clock().Before(deadline) {
			return Match{}, ErrNoMatch
		}
		if err := r.Sleep(ctx, r.poll); err != nil {
			return Match{}, err
		}
	}
}

// probe returns the first acceptable element for one variant, or nil.
// Query errors are treated as "not yet" so a detached node or a page in the
// middle of loading does not abort the wait.
func (r *Resolver) probe(ctx context.Context, scope Finder, loc Locator, accept Accept) (browser.Element, error) {
	elems, err := scope.Find(ctx, loc.Query())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	for _, el := range elems {
		ok, err := accept(ctx, el)
		if err == nil && ok {
			return el, nil
		}
	}
	return nil, nil
}

// Sleep waits for d or until ctx is done.
func (r *Resolver) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollInterval is the delay between probes.
func (r *Resolver) PollInterval() time.Duration {
	return r.poll
}

// Now returns the resolver's clock reading.
func (r *Resolver) Now() time.Time {
	return r.clock()
}

func (r *Resolver) observe(site, variant string) {
	if r.observer != nil {
		r.observer(site, variant)
	}
}
