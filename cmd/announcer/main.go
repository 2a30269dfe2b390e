package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/djlord-it/easy-announce/internal/config"
	"github.com/djlord-it/easy-announce/internal/session"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitRuntimeError
}

var rootCmd = &cobra.Command{
	Use:   "announcer",
	Short: "Announce upcoming Meetup events that have not been announced yet",
	Long: `announcer drives a Chrome session as the group organizer, lists the group's
upcoming events and presses the announce control on every event inside the
window. One pass per invocation; run it from cron or a systemd timer.

Configuration is read from environment variables. Run 'announcer config' to
see the effective values.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	registerOverrideFlags(rootCmd)
}

// registerOverrideFlags adds the flags that override environment values.
func registerOverrideFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("group-url", "", "group URL, overrides GROUP_URL")
	f.String("login-mode", "", "none, manual or credentials, overrides LOGIN_MODE")
	f.Bool("manual-login", false, "shorthand for --login-mode=manual")
	f.Bool("headless", true, "run Chrome headless, overrides HEADLESS")
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, exitWith(exitInvalidConfig, err)
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, exitWith(exitInvalidConfig, err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("group-url") {
		v, err := f.GetString("group-url")
		if err != nil {
			return err
		}
		cfg.GroupURL = v
	}
	if f.Changed("login-mode") {
		v, err := f.GetString("login-mode")
		if err != nil {
			return err
		}
		cfg.LoginMode = v
	}
	if f.Changed("manual-login") {
		v, err := f.GetBool("manual-login")
		if err != nil {
			return err
		}
		if v {
			cfg.LoginMode = string(session.ModeManual)
		}
	}
	if f.Changed("headless") {
		v, err := f.GetBool("headless")
		if err != nil {
			return err
		}
		cfg.Headless = v
	}
	return nil
}
