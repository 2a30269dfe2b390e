package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/djlord-it/easy-announce/internal/browser"
)

// FakeElement is a node in a FakePage. It answers to the CSS strings listed
// in Selectors, compared verbatim.
type FakeElement struct {
	Selectors []string
	Content   string
	Attrs     map[string]string
	Hidden    bool
	Disabled  bool
	Children  []*FakeElement

	// OnClick runs after a successful click; use it to mutate pages.
	OnClick  func()
	ClickErr error

	Clicks int
	Typed  string
}

// El is a shorthand constructor.
func El(selector string, children ...*FakeElement) *FakeElement {
	return &FakeElement{Selectors: []string{selector}, Children: children}
}

// WithText sets the element's visible text and returns the element.
func (e *FakeElement) WithText(s string) *FakeElement {
	e.Content = s
	return e
}

// WithAttr sets an attribute and returns the element.
func (e *FakeElement) WithAttr(name, value string) *FakeElement {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
	return e
}

// FakePage is the DOM served for one URL.
type FakePage struct {
	Elements []*FakeElement
}

// Add appends elements to the page.
func (p *FakePage) Add(elems ...*FakeElement) {
	p.Elements = append(p.Elements, elems...)
}

// Remove drops el from the page's top level.
func (p *FakePage) Remove(el *FakeElement) {
	p.Elements = slices.DeleteFunc(p.Elements, func(e *FakeElement) bool { return e == el })
}

// FakeBrowser implements browser.Browser over in-memory pages.
type FakeBrowser struct {
	mu sync.Mutex

	pages     map[string]*FakePage
	navErrs   map[string][]error
	redirects map[string]string
	current   string

	ScreenshotErr error
	FindErr       error

	Visits      []string
	Screenshots int
	Closed      bool
}

var _ browser.Browser = (*FakeBrowser)(nil)

func NewFakeBrowser() *FakeBrowser {
	return &FakeBrowser{
		pages:     make(map[string]*FakePage),
		navErrs:   make(map[string][]error),
		redirects: make(map[string]string),
	}
}

// Page returns the page for url, creating it if needed.
func (b *FakeBrowser) Page(url string, elems ...*FakeElement) *FakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[url]
	if !ok {
		p = &FakePage{}
		b.pages[url] = p
	}
	p.Add(elems...)
	return p
}

// FailNavigation queues errors returned by successive navigations to url.
func (b *FakeBrowser) FailNavigation(url string, errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navErrs[url] = append(b.navErrs[url], errs...)
}

// Redirect makes navigation to from land on to.
func (b *FakeBrowser) Redirect(from, to string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.redirects[from] = to
}

// VisitCount returns how many navigations targeted url.
func (b *FakeBrowser) VisitCount(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.Visits {
		if v == url {
			n++
		}
	}
	return n
}

func (b *FakeBrowser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Closed {
		return browser.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Visits = append(b.Visits, url)
	if q := b.navErrs[url]; len(q) > 0 {
		b.navErrs[url] = q[1:]
		return q[0]
	}
	if to, ok := b.redirects[url]; ok {
		url = to
	}
	b.current = url
	return nil
}

func (b *FakeBrowser) Find(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	b.mu.Lock()
	if b.Closed {
		b.mu.Unlock()
		return nil, browser.ErrClosed
	}
	if b.FindErr != nil {
		err := b.FindErr
		b.mu.Unlock()
		return nil, err
	}
	var roots []*FakeElement
	if p, ok := b.pages[b.current]; ok {
		roots = p.Elements
	}
	b.mu.Unlock()
	return browser.FilterByText(ctx, collect(roots, q.CSS, nil), q.Text), nil
}

func (b *FakeBrowser) CurrentURL(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, nil
}

func (b *FakeBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ScreenshotErr != nil {
		return nil, b.ScreenshotErr
	}
	b.Screenshots++
	return []byte("\x89PNG fake"), nil
}

func (b *FakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

// collect walks elems depth-first in document order.
func collect(elems []*FakeElement, css string, out []browser.Element) []browser.Element {
	for _, el := range elems {
		if slices.Contains(el.Selectors, css) {
			out = append(out, el)
		}
		out = collect(el.Children, css, out)
	}
	return out
}

func (e *FakeElement) Text(context.Context) (string, error) { return e.Content, nil }

func (e *FakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *FakeElement) Displayed(context.Context) (bool, error) { return !e.Hidden, nil }

func (e *FakeElement) Enabled(context.Context) (bool, error) { return !e.Disabled, nil }

func (e *FakeElement) Click(context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.Hidden {
		return errors.New("fake: element not interactable")
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *FakeElement) Type(_ context.Context, text string) error {
	e.Typed += text
	return nil
}

func (e *FakeElement) Find(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return browser.FilterByText(ctx, collect(e.Children, q.CSS, nil), q.Text), nil
}
