// Package runctx carries the per-run state threaded through every component:
// the browser handle, locator catalog, timing budgets and the outcome tally.
// A RunContext is created at run start and discarded at run end.
package runctx

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/djlord-it/easy-announce/internal/browser"
	"github.com/djlord-it/easy-announce/internal/locator"
	"github.com/djlord-it/easy-announce/internal/outcome"
)

// Budgets bounds every wait in the run.
type Budgets struct {
	FastProbe         time.Duration // per-variant probe for header/controls
	Transition        time.Duration // UI transitions such as the organizer probe
	Banner            time.Duration // per-variant banner wait
	Confirm           time.Duration // optional confirmation dialog
	Settle            time.Duration // client-side rendering after navigation
	ListingLoad       time.Duration // initial event card render
	PageLoad          time.Duration // navigation ceiling
	ListingRetryDelay time.Duration // fixed delay between listing attempts
	Poll              time.Duration // interval between probes while waiting
	Screenshot        time.Duration // best-effort capture ceiling
}

func DefaultBudgets() Budgets {
	return Budgets{
		FastProbe:         500 * time.Millisecond,
		Transition:        10 * time.Second,
		Banner:            5 * time.Second,
		Confirm:           5 * time.Second,
		Settle:            2 * time.Second,
		ListingLoad:       30 * time.Second,
		PageLoad:          60 * time.Second,
		ListingRetryDelay: 5 * time.Second,
		Poll:              250 * time.Millisecond,
		Screenshot:        10 * time.Second,
	}
}

type RunContext struct {
	ID       uuid.UUID
	GroupURL string
	Browser  browser.Browser
	Locators locator.Catalog
	Resolver *locator.Resolver
	Budgets  Budgets
	Tally    *outcome.Aggregator

	screenshotDir  string
	lastScreenshot string
}

// New creates a RunContext with a fresh run ID.
func New(groupURL string, b browser.Browser, cat locator.Catalog, budgets Budgets, screenshotDir string) *RunContext {
	return &RunContext{
		ID:            uuid.New(),
		GroupURL:      groupURL,
		Browser:       b,
		Locators:      cat,
		Resolver:      locator.NewResolver(budgets.Poll),
		Budgets:       budgets,
		Tally:         outcome.NewAggregator(),
		screenshotDir: screenshotDir,
	}
}

// Settle waits for client-side rendering after a navigation.
func (rc *RunContext) Settle(ctx context.Context) error {
	return rc.Resolver.Sleep(ctx, rc.Budgets.Settle)
}

var unsafeLabel = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Capture saves a diagnostic screenshot and returns its path, or "" when the
// capture failed. Failures are logged and never returned.
func (rc *RunContext) Capture(ctx context.Context, label string) string {
	timeout := rc.Budgets.Screenshot
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	data, err := rc.Browser.Screenshot(shotCtx)
	if err != nil {
		log.Printf("runctx: run=%s could not capture screenshot (%s): %v", rc.ID, label, err)
		return ""
	}

	name := fmt.Sprintf("error_screenshot-%s-%s.png", rc.ID.String()[:8], unsafeLabel.ReplaceAllString(label, "_"))
	path := filepath.Join(rc.screenshotDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("runctx: run=%s could not write screenshot %s: %v", rc.ID, path, err)
		return ""
	}
	log.Printf("runctx: run=%s saved screenshot to %s", rc.ID, path)
	rc.lastScreenshot = path
	return path
}

// LastScreenshot returns the path of the most recent successful capture.
func (rc *RunContext) LastScreenshot() string {
	return rc.lastScreenshot
}
