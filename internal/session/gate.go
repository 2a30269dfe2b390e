// Package session establishes and verifies the controlling browser session:
// optional login, then an authentication probe and an organizer-rights probe.
// Both probes fail closed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/djlord-it/easy-announce/internal/domain"
	"github.com/djlord-it/easy-announce/internal/locator"
	"github.com/djlord-it/easy-announce/internal/runctx"
)

var (
	ErrNotAuthenticated = errors.New("session: not authenticated")
	ErrNotOrganizer     = errors.New("session: account lacks organizer rights on the group")
)

// VerifySession reports whether the current page shows a logged-in header.
// Any one visible indicator is enough. Absence of proof counts as not
// authenticated; the URL check only sharpens the log message.
func VerifySession(ctx context.Context, rc *runctx.RunContext) bool {
	m, err := rc.Resolver.First(ctx, locator.SiteAuth, rc.Browser, rc.Locators.AuthIndicators, rc.Budgets.FastProbe, locator.Visible)
	if err == nil {
		log.Printf("session: run=%s authenticated (indicator=%s)", rc.ID, m.Variant)
		return true
	}

	u, uerr := rc.Browser.CurrentURL(ctx)
	switch {
	case uerr != nil:
		log.Printf("session: run=%s no authentication indicator; current url unavailable: %v", rc.ID, uerr)
	case hasLoginMarker(u, rc.Locators.LoginURLMarkers):
		log.Printf("session: run=%s not authenticated, redirected to login page %s", rc.ID, u)
	default:
		log.Printf("session: run=%s no authentication indicator on %s, treating as not authenticated", rc.ID, u)
	}
	return false
}

// VerifyOrganizer navigates to the group page and reports whether a control
// that only renders for organizers is present.
func VerifyOrganizer(ctx context.Context, rc *runctx.RunContext, groupURL string) bool {
	if err := rc.Browser.Navigate(ctx, groupURL); err != nil {
		log.Printf("session: run=%s organizer check could not load group page: %v", rc.ID, err)
		return false
	}
	m, err := rc.Resolver.Await(ctx, locator.SiteManageGroup, rc.Browser, rc.Locators.ManageGroup, rc.Budgets.Transition, locator.Present)
	if err != nil {
		log.Printf("session: run=%s no manage-group control on %s", rc.ID, groupURL)
		return false
	}
	log.Printf("session: run=%s organizer rights confirmed (indicator=%s)", rc.ID, m.Variant)
	return true
}

// Check runs both probes against the group page. The returned error is nil
// only when the state is Ready.
func Check(ctx context.Context, rc *runctx.RunContext) (domain.SessionState, error) {
	var state domain.SessionState

	if err := rc.Browser.Navigate(ctx, rc.GroupURL); err != nil {
		return state, fmt.Errorf("load group page: %w", err)
	}
	if err := rc.Settle(ctx); err != nil {
		return state, err
	}

	state.Authenticated = VerifySession(ctx, rc)
	if !state.Authenticated {
		return state, ErrNotAuthenticated
	}
	state.OrganizerAuthorized = VerifyOrganizer(ctx, rc, rc.GroupURL)
	if !state.OrganizerAuthorized {
		return state, ErrNotOrganizer
	}
	return state, nil
}

func hasLoginMarker(u string, markers []string) bool {
	lower := strings.ToLower(u)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
