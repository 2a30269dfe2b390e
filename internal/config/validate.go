package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// GROUP_URL is required
	if cfg.GroupURL == "" {
		add("GROUP_URL", "required")
	} else if msg := checkHTTPURL(cfg.GroupURL); msg != "" {
		add("GROUP_URL", "%s", msg)
	}

	switch cfg.LoginMode {
	case "none", "manual":
	case "credentials":
		if cfg.LoginEmail == "" {
			add("LOGIN_EMAIL", "required when LOGIN_MODE=credentials")
		}
		if cfg.LoginPassword == "" {
			add("LOGIN_PASSWORD", "required when LOGIN_MODE=credentials")
		}
		if msg := checkHTTPURL(cfg.LoginURL); msg != "" {
			add("LOGIN_URL", "%s", msg)
		}
	default:
		add("LOGIN_MODE", "must be 'none', 'manual' or 'credentials', got %q", cfg.LoginMode)
	}

	if cfg.WindowDays < 0 {
		add("WINDOW_DAYS", "must not be negative")
	}

	positive := []struct {
		field string
		d     time.Duration
	}{
		{"FAST_PROBE_TIMEOUT", cfg.FastProbeTimeout},
		{"TRANSITION_TIMEOUT", cfg.TransitionTimeout},
		{"BANNER_TIMEOUT", cfg.BannerTimeout},
		{"CONFIRM_TIMEOUT", cfg.ConfirmTimeout},
		{"LISTING_TIMEOUT", cfg.ListingTimeout},
		{"PAGE_LOAD_TIMEOUT", cfg.PageLoadTimeout},
		{"POLL_INTERVAL", cfg.PollInterval},
		{"NOTIFY_TIMEOUT", cfg.NotifyTimeout},
		{"DB_OP_TIMEOUT", cfg.DBOpTimeout},
		{"RUN_LOCK_HEARTBEAT", cfg.RunLockHeartbeat},
	}
	for _, p := range positive {
		if p.d <= 0 {
			add(p.field, "must be positive")
		}
	}
	if cfg.SettleDelay < 0 {
		add("SETTLE_DELAY", "must not be negative")
	}
	if cfg.ListingRetryDelay < 0 {
		add("LISTING_RETRY_DELAY", "must not be negative")
	}

	if len(cfg.NotifyTo) > 0 {
		if cfg.SMTPHost == "" {
			add("SMTP_HOST", "required when NOTIFY_TO is set")
		}
		if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
			add("SMTP_PORT", "must be between 1 and 65535, got %d", cfg.SMTPPort)
		}
		if cfg.NotifyFrom == "" && cfg.SMTPUsername == "" {
			add("NOTIFY_FROM", "required when SMTP_USERNAME is empty")
		}
		for _, to := range cfg.NotifyTo {
			if _, err := mail.ParseAddress(to); err != nil {
				add("NOTIFY_TO", "invalid address %q", to)
			}
		}
	}
	if cfg.NotifyFrom != "" {
		if _, err := mail.ParseAddress(cfg.NotifyFrom); err != nil {
			add("NOTIFY_FROM", "invalid address %q", cfg.NotifyFrom)
		}
	}

	if cfg.NotifyWebhookURL != "" {
		if msg := checkHTTPURL(cfg.NotifyWebhookURL); msg != "" {
			add("NOTIFY_WEBHOOK_URL", "%s", msg)
		}
		if cfg.NotifyWebhookSecret == "" {
			add("NOTIFY_WEBHOOK_SECRET", "required when NOTIFY_WEBHOOK_URL is set")
		}
	}

	if cfg.MetricsPushgatewayURL != "" {
		if msg := checkHTTPURL(cfg.MetricsPushgatewayURL); msg != "" {
			add("METRICS_PUSHGATEWAY_URL", "%s", msg)
		}
	}

	if cfg.RunLockKey <= 0 {
		add("RUN_LOCK_KEY", "must be a positive integer")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("must be an http(s) URL, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("missing host in %q", raw)
	}
	return ""
}
