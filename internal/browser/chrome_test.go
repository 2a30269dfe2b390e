package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"
)

const lifecyclePage = `<!doctype html>
<html><body>
<div id="banner">
  <span class="label">This event has not been announced</span>
  <button id="share" disabled>Share</button>
  <button id="go" onclick="document.getElementById('status').textContent='clicked'">Announce</button>
</div>
<div id="hidden" style="display:none">hidden</div>
<p id="status">idle</p>
<time datetime="2025-04-05T19:00:00-04:00">Sat, Apr 5 · 7:00 PM EDT</time>
</body></html>`

func chromePath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Chrome test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome binary on PATH")
	return ""
}

func findOne(t *testing.T, ctx context.Context, scope interface {
	Find(context.Context, Query) ([]Element, error)
}, q Query) Element {
	t.Helper()
	elems, err := scope.Find(ctx, q)
	if err != nil {
		t.Fatalf("Find(%s): %v", q, err)
	}
	if len(elems) != 1 {
		t.Fatalf("Find(%s) returned %d elements, want 1", q, len(elems))
	}
	return elems[0]
}

func TestChrome_Lifecycle(t *testing.T) {
	execPath := chromePath(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, lifecyclePage)
	}))
	defer srv.Close()

	launchCtx, cancelLaunch := context.WithTimeout(context.Background(), 60*time.Second)
	c, err := Launch(launchCtx, LaunchOptions{
		ExecPath:   execPath,
		ProfileDir: t.TempDir(),
		Headless:   true,
		PageLoad:   30 * time.Second,
	})
	// The browser must outlive the context it was launched with.
	cancelLaunch()
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := c.Navigate(ctx, srv.URL+"/events/1/"); err != nil {
		t.Fatalf("Navigate after Launch returned: %v", err)
	}

	u, err := c.CurrentURL(ctx)
	if err != nil {
		t.Fatalf("CurrentURL: %v", err)
	}
	if u != srv.URL+"/events/1/" {
		t.Errorf("CurrentURL = %q, want %q", u, srv.URL+"/events/1/")
	}

	banner := findOne(t, ctx, c, Query{CSS: "#banner"})

	// Scoped lookup narrowed by text.
	control := findOne(t, ctx, banner, Query{CSS: "button", Text: "announce"})
	if enabled, err := control.Enabled(ctx); err != nil || !enabled {
		t.Errorf("announce button Enabled = %v, %v; want true", enabled, err)
	}
	if shown, err := control.Displayed(ctx); err != nil || !shown {
		t.Errorf("announce button Displayed = %v, %v; want true", shown, err)
	}

	share := findOne(t, ctx, banner, Query{CSS: "#share"})
	if enabled, err := share.Enabled(ctx); err != nil || enabled {
		t.Errorf("disabled button Enabled = %v, %v; want false", enabled, err)
	}

	hidden := findOne(t, ctx, c, Query{CSS: "#hidden"})
	if shown, err := hidden.Displayed(ctx); err != nil || shown {
		t.Errorf("display:none element Displayed = %v, %v; want false", shown, err)
	}

	none, err := c.Find(ctx, Query{CSS: ".does-not-exist"})
	if err != nil {
		t.Fatalf("Find on missing selector: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Find on missing selector returned %d elements", len(none))
	}

	dt := findOne(t, ctx, c, Query{CSS: "time"})
	if v, ok, err := dt.Attribute(ctx, "datetime"); err != nil || !ok || v != "2025-04-05T19:00:00-04:00" {
		t.Errorf("Attribute(datetime) = %q, %v, %v", v, ok, err)
	}

	if err := control.Click(ctx); err != nil {
		t.Fatalf("Click: %v", err)
	}
	status := findOne(t, ctx, c, Query{CSS: "#status"})
	if text, err := status.Text(ctx); err != nil || text != "clicked" {
		t.Errorf("status after click = %q, %v; want clicked", text, err)
	}

	shot, err := c.Screenshot(ctx)
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	if len(shot) == 0 {
		t.Error("Screenshot returned no bytes")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := c.Navigate(ctx, srv.URL); !errors.Is(err, ErrClosed) {
		t.Errorf("Navigate after Close = %v, want ErrClosed", err)
	}
}

func TestLaunch_InteractiveNeedsDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")

	_, err := Launch(context.Background(), LaunchOptions{ProfileDir: t.TempDir(), Headless: false})
	if err == nil {
		t.Fatal("expected error launching an interactive browser without DISPLAY")
	}
}
