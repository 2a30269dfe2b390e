package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// webdriverMask hides navigator.webdriver from page scripts.
const webdriverMask = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined })`

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// LaunchOptions configures the Chrome process.
type LaunchOptions struct {
	ExecPath    string
	ProfileDir  string
	UserAgent   string
	Headless    bool
	PageLoad    time.Duration
	DebugLogger func(string, ...any)
}

// Chrome implements Browser over a single Chrome tab driven by chromedp.
type Chrome struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	pageLoad    time.Duration
}

// Launch starts Chrome and returns a ready tab. Interactive (non-headless)
// sessions need an X display.
func Launch(ctx context.Context, opts LaunchOptions) (*Chrome, error) {
	if !opts.Headless && os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("no display available for interactive browser; connect with 'ssh -Y' for X11 forwarding")
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(opts.ProfileDir),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.Headless {
		allocOpts = append(allocOpts,
			chromedp.Flag("headless", "new"),
			chromedp.DisableGPU,
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1920, 1080),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-infobars", true),
			chromedp.Flag("disable-notifications", true),
			chromedp.Flag("disable-popup-blocking", true),
			chromedp.UserAgent(ua),
		)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	var ctxOpts []chromedp.ContextOption
	if opts.DebugLogger != nil {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(opts.DebugLogger))
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, ctxOpts...)

	c := &Chrome{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		pageLoad:    opts.PageLoad,
	}
	if c.pageLoad <= 0 {
		c.pageLoad = 60 * time.Second
	}

	// The first Run allocates the browser process and binds it to the context
	// it runs on, so it must use the undecorated tab context. A derived
	// context here would kill Chrome once Launch returns.
	if err := chromedp.Run(c.ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	runCtx, cancel := c.scope(ctx, c.pageLoad)
	defer cancel()
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(webdriverMask).Do(ctx)
		return err
	}))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("mask webdriver: %w", err)
	}

	log.Printf("browser: chrome started (headless=%t, profile=%s)", opts.Headless, opts.ProfileDir)
	return c, nil
}

// scope derives a chromedp context from the tab that also honours the
// caller's cancellation and deadline, capped at limit when limit > 0.
func (c *Chrome) scope(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(c.ctx)
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		runCtx, cancelDL = context.WithDeadline(runCtx, dl)
		prev := cancel
		cancel = func() { cancelDL(); prev() }
	}
	if limit > 0 {
		var cancelLimit context.CancelFunc
		runCtx, cancelLimit = context.WithTimeout(runCtx, limit)
		prev := cancel
		cancel = func() { cancelLimit(); prev() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	runCtx, cancel := c.scope(ctx, 0)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	runCtx, cancel := c.scope(ctx, c.pageLoad)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) Find(ctx context.Context, q Query) ([]Element, error) {
	return c.find(ctx, nil, q)
}

func (c *Chrome) find(ctx context.Context, parent *cdp.Node, q Query) ([]Element, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}
	if err := c.run(ctx, chromedp.Nodes(q.CSS, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &chromeElement{c: c, node: n})
	}
	return FilterByText(ctx, elems, q.Text), nil
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := c.run(ctx, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return u, nil
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (c *Chrome) Close() error {
	if c.ctx.Err() == nil {
		if err := chromedp.Cancel(c.ctx); err != nil {
			log.Printf("browser: graceful close failed: %v", err)
		}
	}
	c.cancelTab()
	c.cancelAlloc()
	return nil
}

type chromeElement struct {
	c    *Chrome
	node *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var s string
	if err := e.c.run(ctx, chromedp.Text(e.ids(), &s, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	if err := e.c.run(ctx, chromedp.AttributeValue(e.ids(), name, &v, &ok, chromedp.ByNodeID)); err != nil {
		return "", false, err
	}
	return v, ok, nil
}

// Displayed reports whether the element has a rendered box.
func (e *chromeElement) Displayed(ctx context.Context) (bool, error) {
	var visible bool
	err := e.c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		visible = err == nil
		return nil
	}))
	return visible, err
}

func (e *chromeElement) Enabled(ctx context.Context) (bool, error) {
	attrs := make(map[string]string)
	if err := e.c.run(ctx, chromedp.Attributes(e.ids(), &attrs, chromedp.ByNodeID)); err != nil {
		return false, err
	}
	if _, disabled := attrs["disabled"]; disabled {
		return false, nil
	}
	return attrs["aria-disabled"] != "true", nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.c.run(ctx,
		chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID),
		chromedp.MouseClickNode(e.node),
	)
}

func (e *chromeElement) Type(ctx context.Context, text string) error {
	return e.c.run(ctx,
		chromedp.Focus(e.ids(), chromedp.ByNodeID),
		chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID),
	)
}

func (e *chromeElement) Find(ctx context.Context, q Query) ([]Element, error) {
	return e.c.find(ctx, e.node, q)
}
