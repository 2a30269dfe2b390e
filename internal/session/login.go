package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/charmbracelet/lipgloss"

	"github.com/djlord-it/easy-announce/internal/locator"
	"github.com/djlord-it/easy-announce/internal/runctx"
)

// Mode selects how the session gets authenticated before the gate runs.
type Mode string

const (
	ModeNone        Mode = "none"
	ModeManual      Mode = "manual"
	ModeCredentials Mode = "credentials"
)

// Credentials for ModeCredentials.
type Credentials struct {
	LoginURL string
	Email    string
	Password string
}

// Prompter blocks until the operator confirms an interactive step.
type Prompter interface {
	Confirm(ctx context.Context, message string) error
}

// Login authenticates the session according to mode. ModeNone relies on the
// persistent browser profile and does nothing.
func Login(ctx context.Context, rc *runctx.RunContext, mode Mode, creds Credentials, p Prompter) error {
	switch mode {
	case ModeNone, "":
		return nil
	case ModeManual:
		return manualLogin(ctx, rc, p)
	case ModeCredentials:
		return credentialLogin(ctx, rc, creds)
	default:
		return fmt.Errorf("unknown login mode %q", mode)
	}
}

func manualLogin(ctx context.Context, rc *runctx.RunContext, p Prompter) error {
	if p == nil {
		return errors.New("manual login requires a console prompter")
	}
	log.Printf("session: run=%s starting manual login", rc.ID)
	if err := rc.Browser.Navigate(ctx, rc.GroupURL); err != nil {
		return fmt.Errorf("open group page for login: %w", err)
	}
	msg := "Please log in manually in the browser window.\n" +
		"The browser should appear on your local machine through X11 forwarding.\n" +
		"Press Enter when you have completed the login..."
	if err := p.Confirm(ctx, msg); err != nil {
		return fmt.Errorf("manual login: %w", err)
	}
	return nil
}

func credentialLogin(ctx context.Context, rc *runctx.RunContext, creds Credentials) error {
	log.Printf("session: run=%s starting credential login at %s", rc.ID, creds.LoginURL)
	if err := rc.Browser.Navigate(ctx, creds.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	email, err := rc.Resolver.First(ctx, locator.SiteLoginEmail, rc.Browser, rc.Locators.LoginEmail, rc.Budgets.Transition, locator.Visible)
	if err != nil {
		return fmt.Errorf("email field: %w", err)
	}
	if err := email.Element.Type(ctx, creds.Email); err != nil {
		return fmt.Errorf("type email: %w", err)
	}

	password, err := rc.Resolver.First(ctx, locator.SiteLoginPassword, rc.Browser, rc.Locators.LoginPassword, rc.Budgets.FastProbe, locator.Visible)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := password.Element.Type(ctx, creds.Password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}

	submit, err := rc.Resolver.First(ctx, locator.SiteLoginSubmit, rc.Browser, rc.Locators.LoginSubmit, rc.Budgets.FastProbe, locator.Clickable)
	if err != nil {
		return fmt.Errorf("submit control: %w", err)
	}
	if err := submit.Element.Click(ctx); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	return rc.Settle(ctx)
}

var promptStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("212")).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 1)

// ConsolePrompter prints a styled message and waits for a line on in.
type ConsolePrompter struct {
	in  io.Reader
	out io.Writer
}

func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: in, out: out}
}

// Confirm returns when a line arrives or ctx is done. On cancellation the
// goroutine reading in stays blocked until in yields or the process exits, so
// a ConsolePrompter whose Confirm was cancelled must not be reused on the same
// reader. Fine for the one-shot CLI.
func (c *ConsolePrompter) Confirm(ctx context.Context, message string) error {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, promptStyle.Render(message))

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(c.in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
