package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djlord-it/easy-announce/internal/locator"
	"github.com/djlord-it/easy-announce/internal/runctx"
	"github.com/djlord-it/easy-announce/internal/testutil"
)

const groupURL = "https://www.meetup.com/test-group/"

func fastBudgets() runctx.Budgets {
	return runctx.Budgets{
		FastProbe:  5 * time.Millisecond,
		Transition: 20 * time.Millisecond,
		Poll:       time.Millisecond,
	}
}

func newRC(t *testing.T, b *testutil.FakeBrowser) *runctx.RunContext {
	t.Helper()
	return runctx.New(groupURL, b, locator.Default(), fastBudgets(), t.TempDir())
}

func profileMenu() *testutil.FakeElement {
	return testutil.El(`[data-testid="header-profile-menu"]`)
}

func manageButton() *testutil.FakeElement {
	return testutil.El(`button`).WithText("Manage group")
}

func TestCheck_Ready(t *testing.T) {
	b := testutil.NewFakeBrowser()
	b.Page(groupURL, profileMenu(), manageButton())
	rc := newRC(t, b)

	state, err := Check(testutil.TestContext(t), rc)
	require.NoError(t, err)
	assert.True(t, state.Ready())
}

func TestCheck_LaterAuthVariantStillCounts(t *testing.T) {
	b := testutil.NewFakeBrowser()
	b.Page(groupURL, testutil.El(`[aria-label="Open profile menu"]`), manageButton())
	rc := newRC(t, b)

	state, err := Check(testutil.TestContext(t), rc)
	require.NoError(t, err)
	assert.True(t, state.Authenticated)
}

func TestCheck_HiddenIndicatorIsNotAuthenticated(t *testing.T) {
	b := testutil.NewFakeBrowser()
	menu := profileMenu()
	menu.Hidden = true
	b.Page(groupURL, menu, manageButton())
	rc := newRC(t, b)

	state, err := Check(testutil.TestContext(t), rc)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, state.Authenticated)
	assert.False(t, state.OrganizerAuthorized)
}

func TestCheck_RedirectedToLogin(t *testing.T) {
	b := testutil.NewFakeBrowser()
	b.Redirect(groupURL, "https://www.meetup.com/login/?returnUri=x")
	rc := newRC(t, b)

	_, err := Check(testutil.TestContext(t), rc)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCheck_MemberWithoutOrganizerRights(t *testing.T) {
	b := testutil.NewFakeBrowser()
	b.Page(groupURL, profileMenu())
	rc := newRC(t, b)

	state, err := Check(testutil.TestContext(t), rc)
	assert.ErrorIs(t, err, ErrNotOrganizer)
	assert.True(t, state.Authenticated)
	assert.False(t, state.OrganizerAuthorized)
}

func TestVerifyOrganizer_HiddenDropdownCounts(t *testing.T) {
	b := testutil.NewFakeBrowser()
	dropdown := testutil.El(`[data-event-label="manage-group-dropdown"]`)
	dropdown.Hidden = true
	b.Page(groupURL, dropdown)
	rc := newRC(t, b)

	assert.True(t, VerifyOrganizer(testutil.TestContext(t), rc, groupURL))
}

func TestCheck_NavigationFailure(t *testing.T) {
	b := testutil.NewFakeBrowser()
	b.FailNavigation(groupURL, errors.New("net::ERR_NAME_NOT_RESOLVED"))
	rc := newRC(t, b)

	_, err := Check(testutil.TestContext(t), rc)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotAuthenticated))
}

func TestHasLoginMarker(t *testing.T) {
	markers := locator.Default().LoginURLMarkers
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.meetup.com/login/", true},
		{"https://secure.meetup.com/SignIn?x=1", true},
		{"https://www.meetup.com/register/", true},
		{"https://www.meetup.com/test-group/", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hasLoginMarker(tt.url, markers), tt.url)
	}
}

type promptFunc func(ctx context.Context, msg string) error

func (f promptFunc) Confirm(ctx context.Context, msg string) error { return f(ctx, msg) }

func TestLogin_None(t *testing.T) {
	b := testutil.NewFakeBrowser()
	rc := newRC(t, b)

	require.NoError(t, Login(testutil.TestContext(t), rc, ModeNone, Credentials{}, nil))
	assert.Empty(t, b.Visits)
}

func TestLogin_ManualWaitsForOperator(t *testing.T) {
	b := testutil.NewFakeBrowser()
	rc := newRC(t, b)

	var prompted string
	p := promptFunc(func(_ context.Context, msg string) error {
		prompted = msg
		return nil
	})

	require.NoError(t, Login(testutil.TestContext(t), rc, ModeManual, Credentials{}, p))
	assert.Contains(t, prompted, "log in manually")
	assert.Equal(t, 1, b.VisitCount(groupURL))
}

func TestLogin_ManualWithoutPrompter(t *testing.T) {
	rc := newRC(t, testutil.NewFakeBrowser())
	assert.Error(t, Login(testutil.TestContext(t), rc, ModeManual, Credentials{}, nil))
}

func TestLogin_Credentials(t *testing.T) {
	const loginURL = "https://www.meetup.com/login/"
	b := testutil.NewFakeBrowser()
	email := testutil.El(`input[name="email"]`)
	password := testutil.El(`input[type="password"]`)
	submit := testutil.El(`button[type="submit"]`)
	b.Page(loginURL, email, password, submit)
	rc := newRC(t, b)

	creds := Credentials{LoginURL: loginURL, Email: "org@example.com", Password: "hunter2"}
	require.NoError(t, Login(testutil.TestContext(t), rc, ModeCredentials, creds, nil))

	assert.Equal(t, "org@example.com", email.Typed)
	assert.Equal(t, "hunter2", password.Typed)
	assert.Equal(t, 1, submit.Clicks)
}

func TestLogin_CredentialsMissingField(t *testing.T) {
	const loginURL = "https://www.meetup.com/login/"
	b := testutil.NewFakeBrowser()
	b.Page(loginURL, testutil.El(`input#email`))
	rc := newRC(t, b)

	err := Login(testutil.TestContext(t), rc, ModeCredentials, Credentials{LoginURL: loginURL}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, locator.ErrNoMatch)
	assert.Contains(t, err.Error(), "password")
}

func TestLogin_UnknownMode(t *testing.T) {
	rc := newRC(t, testutil.NewFakeBrowser())
	assert.Error(t, Login(testutil.TestContext(t), rc, Mode("sso"), Credentials{}, nil))
}

func TestConsolePrompter_ReturnsOnEnter(t *testing.T) {
	var out strings.Builder
	p := NewConsolePrompter(strings.NewReader("\n"), &out)

	require.NoError(t, p.Confirm(testutil.TestContext(t), "Press Enter"))
	assert.Contains(t, out.String(), "Press Enter")
}

type blockingReader struct{ ch chan struct{} }

func (r blockingReader) Read([]byte) (int, error) {
	<-r.ch
	return 0, errors.New("closed")
}

func TestConsolePrompter_HonoursCancel(t *testing.T) {
	r := blockingReader{ch: make(chan struct{})}
	defer close(r.ch)
	p := NewConsolePrompter(r, &strings.Builder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Confirm(ctx, "x"), context.Canceled)
}
