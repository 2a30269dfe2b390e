// Package browser is the capability surface the announcer drives: navigation,
// element queries, element state, clicks and screenshots. The Chrome type
// implements it over the DevTools protocol; tests use testutil.FakeBrowser.
package browser

import (
	"context"
	"errors"
	"strings"
)

// ErrClosed is returned by operations on a browser that has been closed.
var ErrClosed = errors.New("browser: closed")

// Query addresses zero or more elements. CSS is required; when Text is set,
// only elements whose visible text contains it (case-insensitive) match.
type Query struct {
	CSS  string
	Text string
}

func (q Query) String() string {
	if q.Text == "" {
		return q.CSS
	}
	return q.CSS + ` :text("` + q.Text + `")`
}

type Browser interface {
	Navigate(ctx context.Context, url string) error
	// Find returns the elements matching q right now; it never waits.
	Find(ctx context.Context, q Query) ([]Element, error)
	CurrentURL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
	// Find returns descendants matching q right now; it never waits.
	Find(ctx context.Context, q Query) ([]Element, error)
}

// FilterByText keeps the elements whose text contains q.Text. Elements whose
// text cannot be read are dropped.
func FilterByText(ctx context.Context, elems []Element, text string) []Element {
	if text == "" {
		return elems
	}
	want := strings.ToLower(strings.TrimSpace(text))
	var out []Element
	for _, el := range elems {
		got, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(got), want) {
			out = append(out, el)
		}
	}
	return out
}
