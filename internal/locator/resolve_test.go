package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djlord-it/easy-announce/internal/browser"
	"github.com/djlord-it/easy-announce/internal/testutil"
)

const page = "https://example.com/events/1/"

func newPage(t *testing.T, elems ...*testutil.FakeElement) (*testutil.FakeBrowser, context.Context) {
	t.Helper()
	ctx := testutil.TestContext(t)
	b := testutil.NewFakeBrowser()
	b.Page(page, elems...)
	require.NoError(t, b.Navigate(ctx, page))
	return b, ctx
}

func TestResolver_First_ReturnsEarliestVariantThatMatches(t *testing.T) {
	b, ctx := newPage(t,
		testutil.El(".second"),
		testutil.El(".third"),
	)
	set := Set{
		{Name: "first", CSS: ".first"},
		{Name: "second", CSS: ".second"},
		{Name: "third", CSS: ".third"},
	}

	var observed []string
	r := NewResolver(time.Millisecond).WithObserver(func(site, variant string) {
		observed = append(observed, site+"/"+variant)
	})

	m, err := r.First(ctx, "test", b, set, 0, Present)
	require.NoError(t, err)
	assert.Equal(t, "second", m.Variant)
	assert.Equal(t, []string{"test/second"}, observed)
}

func TestResolver_First_SkipsInvisibleElements(t *testing.T) {
	hidden := testutil.El(".banner")
	hidden.Hidden = true
	b, ctx := newPage(t, hidden, testutil.El(".banner-v2"))

	set := Set{
		{Name: "v1", CSS: ".banner"},
		{Name: "v2", CSS: ".banner-v2"},
	}
	m, err := NewResolver(time.Millisecond).First(ctx, "banner", b, set, 0, Visible)
	require.NoError(t, err)
	assert.Equal(t, "v2", m.Variant)
}

func TestResolver_First_ClickableRequiresEnabled(t *testing.T) {
	disabled := testutil.El("button.announce")
	disabled.Disabled = true
	b, ctx := newPage(t, disabled)

	_, err := NewResolver(time.Millisecond).First(ctx, "control", b, Set{{Name: "a", CSS: "button.announce"}}, 0, Clickable)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolver_First_WaitsForLateElement(t *testing.T) {
	b, ctx := newPage(t)
	p := b.Page(page)

	clock := testutil.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	probes := 0
	finder := finderFunc(func(ctx context.Context, q browser.Query) ([]browser.Element, error) {
		probes++
		clock.Advance(100 * time.Millisecond)
		if probes == 3 {
			p.Add(testutil.El(".late"))
		}
		return b.Find(ctx, q)
	})

	r := NewResolver(time.Microsecond).WithClock(clock.Now)
	m, err := r.First(ctx, "late", finder, Set{{Name: "late", CSS: ".late"}}, time.Second, Present)
	require.NoError(t, err)
	assert.Equal(t, "late", m.Variant)
	assert.Equal(t, 3, probes)
}

func TestResolver_First_EachVariantGetsItsOwnBudget(t *testing.T) {
	b, ctx := newPage(t)
	clock := testutil.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	perQuery := map[string]int{}
	finder := finderFunc(func(ctx context.Context, q browser.Query) ([]browser.Element, error) {
		perQuery[q.CSS]++
		clock.Advance(250 * time.Millisecond)
		return b.Find(ctx, q)
	})

	r := NewResolver(time.Microsecond).WithClock(clock.Now)
	_, err := r.First(ctx, "none", finder, Set{{Name: "a", CSS: ".a"}, {Name: "b", CSS: ".b"}}, time.Second, Present)
	require.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, 4, perQuery[".a"])
	assert.Equal(t, 4, perQuery[".b"])
}

func TestResolver_First_QueryErrorsAreNotFatal(t *testing.T) {
	b, ctx := newPage(t, testutil.El(".ok"))
	calls := 0
	finder := finderFunc(func(ctx context.Context, q browser.Query) ([]browser.Element, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("node detached")
		}
		return b.Find(ctx, q)
	})

	m, err := NewResolver(time.Microsecond).First(ctx, "x", finder, Set{{Name: "ok", CSS: ".ok"}}, time.Second, Present)
	require.NoError(t, err)
	assert.Equal(t, "ok", m.Variant)
}

func TestResolver_First_StopsOnCancelledContext(t *testing.T) {
	b, _ := newPage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(time.Millisecond).First(ctx, "x", b, Set{{Name: "a", CSS: ".a"}}, time.Hour, Present)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver_Probe_ReturnsAllElementsOfWinningVariant(t *testing.T) {
	b, ctx := newPage(t,
		testutil.El("a.card"),
		testutil.El("a.card"),
		testutil.El("div.card"),
	)
	set := Set{
		{Name: "missing", CSS: "a.none"},
		{Name: "anchor", CSS: "a.card"},
		{Name: "div", CSS: "div.card"},
	}

	m, err := NewResolver(time.Millisecond).Probe(ctx, "cards", b, set, Present)
	require.NoError(t, err)
	assert.Equal(t, "anchor", m.Variant)
	assert.Len(t, m.Elements, 2)
}

func TestResolver_Probe_TextVariant(t *testing.T) {
	b, ctx := newPage(t,
		testutil.El("button").WithText("Share"),
		testutil.El("button").WithText("Announce"),
	)
	m, err := NewResolver(time.Millisecond).Probe(ctx, "control", b, Set{{Name: "text", CSS: "button", Text: "announce"}}, Clickable)
	require.NoError(t, err)
	text, _ := m.Element.Text(ctx)
	assert.Equal(t, "Announce", text)
}

type finderFunc func(ctx context.Context, q browser.Query) ([]browser.Element, error)

func (f finderFunc) Find(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return f(ctx, q)
}

func TestResolver_Await_SharesBudgetAcrossVariants(t *testing.T) {
	b, ctx := newPage(t)
	p := b.Page(page)
	clock := testutil.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	rounds := 0
	finder := finderFunc(func(ctx context.Context, q browser.Query) ([]browser.Element, error) {
		if q.CSS == ".a" {
			rounds++
			clock.Advance(100 * time.Millisecond)
			if rounds == 4 {
				p.Add(testutil.El(".b"))
			}
		}
		return b.Find(ctx, q)
	})

	r := NewResolver(time.Microsecond).WithClock(clock.Now)
	m, err := r.Await(ctx, "x", finder, Set{{Name: "a", CSS: ".a"}, {Name: "b", CSS: ".b"}}, time.Second, Present)
	require.NoError(t, err)
	assert.Equal(t, "b", m.Variant)
	assert.Equal(t, 4, rounds)
}

func TestResolver_Await_ExpiresWithNoMatch(t *testing.T) {
	b, ctx := newPage(t)
	clock := testutil.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	finder := finderFunc(func(ctx context.Context, q browser.Query) ([]browser.Element, error) {
		clock.Advance(300 * time.Millisecond)
		return b.Find(ctx, q)
	})

	r := NewResolver(time.Microsecond).WithClock(clock.Now)
	_, err := r.Await(ctx, "x", finder, Set{{Name: "a", CSS: ".a"}}, time.Second, Present)
	assert.ErrorIs(t, err, ErrNoMatch)
}
