// Package discovery lists a group's events page and extracts one EventRecord
// per rendered card, in page order.
//
// Page order is assumed to be chronological ascending. The orchestrator's
// early exit depends on it; CheckOrder only warns when it does not hold.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/djlord-it/easy-announce/internal/browser"
	"github.com/djlord-it/easy-announce/internal/domain"
	"github.com/djlord-it/easy-announce/internal/locator"
	"github.com/djlord-it/easy-announce/internal/runctx"
)

// ErrListingUnavailable means the events page never rendered cards or an
// empty state across all attempts.
var ErrListingUnavailable = errors.New("discovery: events listing unavailable")

// MaxAttempts bounds listing navigation.
const MaxAttempts = 3

// EventsURL returns the events listing URL for a group page URL.
func EventsURL(groupURL string) string {
	if !strings.HasSuffix(groupURL, "/") {
		groupURL += "/"
	}
	return groupURL + "events/"
}

// ListEvents loads the events listing and returns its cards as records.
// An explicit empty state yields an empty slice and no error.
func ListEvents(ctx context.Context, rc *runctx.RunContext) ([]domain.EventRecord, error) {
	listURL := EventsURL(rc.GroupURL)

	attempt := 0
	load := func() (listing, error) {
		attempt++
		l, err := loadOnce(ctx, rc, listURL)
		if err != nil && ctx.Err() != nil {
			return l, backoff.Permanent(ctx.Err())
		}
		return l, err
	}
	notify := func(err error, _ time.Duration) {
		log.Printf("discovery: run=%s attempt %d/%d failed: %v", rc.ID, attempt, MaxAttempts, err)
	}

	l, err := backoff.Retry(ctx, load,
		backoff.WithBackOff(backoff.NewConstantBackOff(rc.Budgets.ListingRetryDelay)),
		backoff.WithMaxTries(MaxAttempts),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrListingUnavailable, attempt, err)
	}
	if l.empty {
		log.Printf("discovery: run=%s no upcoming events on %s", rc.ID, listURL)
		return []domain.EventRecord{}, nil
	}
	cards := l.cards

	log.Printf("discovery: run=%s found %d event cards (variant=%s)", rc.ID, len(cards.Elements), cards.Variant)

	base, err := url.Parse(listURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	records := make([]domain.EventRecord, 0, len(cards.Elements))
	for i, card := range cards.Elements {
		rec, err := extract(ctx, rc, base, card)
		if err != nil {
			log.Printf("discovery: run=%s WARNING dropping card %d: %v", rc.ID, i+1, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

type listing struct {
	cards locator.Match
	empty bool
}

// loadOnce is one navigation attempt plus the wait for cards or an empty
// state, both within the listing budget.
func loadOnce(ctx context.Context, rc *runctx.RunContext, listURL string) (listing, error) {
	if err := rc.Browser.Navigate(ctx, listURL); err != nil {
		return listing{}, fmt.Errorf("navigate: %w", err)
	}

	deadline := rc.Resolver.Now().Add(rc.Budgets.ListingLoad)
	for {
		m, err := rc.Resolver.Probe(ctx, locator.SiteEventCards, rc.Browser, rc.Locators.EventCards, locator.Present)
		if err == nil {
			return listing{cards: m}, nil
		}
		if !errors.Is(err, locator.ErrNoMatch) {
			return listing{}, err
		}
		if _, err := rc.Resolver.Probe(ctx, locator.SiteEmptyListing, rc.Browser, rc.Locators.EmptyListing, locator.Present); err == nil {
			return listing{empty: true}, nil
		}
		if !rc.Resolver.Now().Before(deadline) {
			return listing{}, fmt.Errorf("no event cards within %s", rc.Budgets.ListingLoad)
		}
		if err := rc.Resolver.Sleep(ctx, rc.Resolver.PollInterval()); err != nil {
			return listing{}, err
		}
	}
}

func extract(ctx context.Context, rc *runctx.RunContext, base *url.URL, card browser.Element) (domain.EventRecord, error) {
	href, err := cardHref(ctx, rc, card)
	if err != nil {
		return domain.EventRecord{}, err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return domain.EventRecord{}, fmt.Errorf("bad link %q: %w", href, err)
	}

	date, err := cardDate(ctx, rc, card)
	if err != nil {
		return domain.EventRecord{}, err
	}
	return domain.EventRecord{URL: base.ResolveReference(ref).String(), RawDateText: date}, nil
}

// cardHref reads the card's own href, falling back to a link inside it.
func cardHref(ctx context.Context, rc *runctx.RunContext, card browser.Element) (string, error) {
	if v, ok, err := card.Attribute(ctx, "href"); err == nil && ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	m, err := rc.Resolver.Probe(ctx, locator.SiteCardLink, card, rc.Locators.CardLink, locator.Present)
	if err != nil {
		return "", fmt.Errorf("no link: %w", err)
	}
	v, ok, err := m.Element.Attribute(ctx, "href")
	if err != nil {
		return "", fmt.Errorf("read link: %w", err)
	}
	if !ok || strings.TrimSpace(v) == "" {
		return "", errors.New("link has no href")
	}
	return strings.TrimSpace(v), nil
}

// cardDate reads the visible date text, falling back to a datetime attribute.
func cardDate(ctx context.Context, rc *runctx.RunContext, card browser.Element) (string, error) {
	m, err := rc.Resolver.Probe(ctx, locator.SiteCardDate, card, rc.Locators.CardDate, locator.Present)
	if err != nil {
		return "", fmt.Errorf("no date element: %w", err)
	}
	if text, err := m.Element.Text(ctx); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text), nil
	}
	if v, ok, err := m.Element.Attribute(ctx, "datetime"); err == nil && ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	return "", errors.New("date element is empty")
}
