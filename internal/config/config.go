package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/djlord-it/easy-announce/internal/runctx"
)

// Config holds all configuration for the announcer.
// Values are loaded from environment variables; CLI flags override a few.
type Config struct {
	GroupURL string `env:"GROUP_URL"`

	// LoginMode: "none" (persistent profile), "manual" or "credentials".
	LoginMode     string `env:"LOGIN_MODE"     envDefault:"none"`
	LoginURL      string `env:"LOGIN_URL"      envDefault:"https://www.meetup.com/login/"`
	LoginEmail    string `env:"LOGIN_EMAIL"`
	LoginPassword string `env:"LOGIN_PASSWORD"`

	// Headless is forced off in manual login mode.
	Headless   bool   `env:"HEADLESS"    envDefault:"true"`
	ChromePath string `env:"CHROME_PATH"`
	ProfileDir string `env:"PROFILE_DIR" envDefault:"./chrome_profile"`
	UserAgent  string `env:"USER_AGENT"`

	LogFile       string `env:"LOG_FILE"       envDefault:"announcer.log"`
	ScreenshotDir string `env:"SCREENSHOT_DIR" envDefault:"."`
	WindowDays    int    `env:"WINDOW_DAYS"    envDefault:"18"`
	LocatorsFile  string `env:"LOCATORS_FILE"`

	FastProbeTimeout  time.Duration `env:"FAST_PROBE_TIMEOUT"  envDefault:"500ms"`
	TransitionTimeout time.Duration `env:"TRANSITION_TIMEOUT"  envDefault:"10s"`
	BannerTimeout     time.Duration `env:"BANNER_TIMEOUT"      envDefault:"5s"`
	ConfirmTimeout    time.Duration `env:"CONFIRM_TIMEOUT"     envDefault:"5s"`
	SettleDelay       time.Duration `env:"SETTLE_DELAY"        envDefault:"2s"`
	ListingTimeout    time.Duration `env:"LISTING_TIMEOUT"     envDefault:"30s"`
	PageLoadTimeout   time.Duration `env:"PAGE_LOAD_TIMEOUT"   envDefault:"60s"`
	ListingRetryDelay time.Duration `env:"LISTING_RETRY_DELAY" envDefault:"5s"`
	PollInterval      time.Duration `env:"POLL_INTERVAL"       envDefault:"250ms"`

	SMTPHost            string        `env:"SMTP_HOST"     envDefault:"smtp.gmail.com"`
	SMTPPort            int           `env:"SMTP_PORT"     envDefault:"465"`
	SMTPUsername        string        `env:"SMTP_USERNAME"`
	SMTPPassword        string        `env:"SMTP_PASSWORD"`
	NotifyFrom          string        `env:"NOTIFY_FROM"`
	NotifyTo            []string      `env:"NOTIFY_TO"     envSeparator:","`
	NotifyWebhookURL    string        `env:"NOTIFY_WEBHOOK_URL"`
	NotifyWebhookSecret string        `env:"NOTIFY_WEBHOOK_SECRET"`
	NotifyTimeout       time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"30s"`

	RedisAddr   string        `env:"REDIS_ADDR"`
	DatabaseURL string        `env:"DATABASE_URL"`
	DBOpTimeout time.Duration `env:"DB_OP_TIMEOUT" envDefault:"5s"`

	// RunLockKey: every announcer sharing one browser profile must use the same key.
	RunLockKey int64 `env:"RUN_LOCK_KEY" envDefault:"581207"`

	// RunLockHeartbeat pings the lock connection. Does NOT renew the lock.
	RunLockHeartbeat time.Duration `env:"RUN_LOCK_HEARTBEAT" envDefault:"2s"`

	MetricsPushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL"`
}

// Load reads configuration from the process environment with defaults.
// Only malformed values fail here; semantic checks are done by Validate().
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// EffectiveHeadless reports whether the browser should run headless.
// Manual login needs a visible window.
func (c Config) EffectiveHeadless() bool {
	return c.Headless && c.LoginMode != "manual"
}

// Budgets returns the run timing budgets.
func (c Config) Budgets() runctx.Budgets {
	b := runctx.DefaultBudgets()
	b.FastProbe = c.FastProbeTimeout
	b.Transition = c.TransitionTimeout
	b.Banner = c.BannerTimeout
	b.Confirm = c.ConfirmTimeout
	b.Settle = c.SettleDelay
	b.ListingLoad = c.ListingTimeout
	b.PageLoad = c.PageLoadTimeout
	b.ListingRetryDelay = c.ListingRetryDelay
	b.Poll = c.PollInterval
	return b
}

// NotificationConfigured reports whether at least one report channel is set.
func (c Config) NotificationConfigured() bool {
	return len(c.NotifyTo) > 0 || c.NotifyWebhookURL != ""
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		GroupURL              string   `json:"group_url"`
		LoginMode             string   `json:"login_mode"`
		LoginURL              string   `json:"login_url"`
		LoginEmail            string   `json:"login_email,omitempty"`
		LoginPassword         string   `json:"login_password,omitempty"`
		Headless              bool     `json:"headless"`
		ChromePath            string   `json:"chrome_path,omitempty"`
		ProfileDir            string   `json:"profile_dir"`
		UserAgent             string   `json:"user_agent,omitempty"`
		LogFile               string   `json:"log_file"`
		ScreenshotDir         string   `json:"screenshot_dir"`
		WindowDays            int      `json:"window_days"`
		LocatorsFile          string   `json:"locators_file,omitempty"`
		FastProbeTimeout      string   `json:"fast_probe_timeout"`
		TransitionTimeout     string   `json:"transition_timeout"`
		BannerTimeout         string   `json:"banner_timeout"`
		ConfirmTimeout        string   `json:"confirm_timeout"`
		SettleDelay           string   `json:"settle_delay"`
		ListingTimeout        string   `json:"listing_timeout"`
		PageLoadTimeout       string   `json:"page_load_timeout"`
		ListingRetryDelay     string   `json:"listing_retry_delay"`
		PollInterval          string   `json:"poll_interval"`
		SMTPHost              string   `json:"smtp_host"`
		SMTPPort              int      `json:"smtp_port"`
		SMTPUsername          string   `json:"smtp_username,omitempty"`
		SMTPPassword          string   `json:"smtp_password,omitempty"`
		NotifyFrom            string   `json:"notify_from,omitempty"`
		NotifyTo              []string `json:"notify_to,omitempty"`
		NotifyWebhookURL      string   `json:"notify_webhook_url,omitempty"`
		NotifyWebhookSecret   string   `json:"notify_webhook_secret,omitempty"`
		NotifyTimeout         string   `json:"notify_timeout"`
		RedisAddr             string   `json:"redis_addr,omitempty"`
		DatabaseURL           string   `json:"database_url,omitempty"`
		DBOpTimeout           string   `json:"db_op_timeout"`
		RunLockKey            int64    `json:"run_lock_key"`
		RunLockHeartbeat      string   `json:"run_lock_heartbeat"`
		MetricsPushgatewayURL string   `json:"metrics_pushgateway_url,omitempty"`
	}{
		GroupURL:              c.GroupURL,
		LoginMode:             c.LoginMode,
		LoginURL:              c.LoginURL,
		LoginEmail:            c.LoginEmail,
		LoginPassword:         maskSecret(c.LoginPassword),
		Headless:              c.EffectiveHeadless(),
		ChromePath:            c.ChromePath,
		ProfileDir:            c.ProfileDir,
		UserAgent:             c.UserAgent,
		LogFile:               c.LogFile,
		ScreenshotDir:         c.ScreenshotDir,
		WindowDays:            c.WindowDays,
		LocatorsFile:          c.LocatorsFile,
		FastProbeTimeout:      c.FastProbeTimeout.String(),
		TransitionTimeout:     c.TransitionTimeout.String(),
		BannerTimeout:         c.BannerTimeout.String(),
		ConfirmTimeout:        c.ConfirmTimeout.String(),
		SettleDelay:           c.SettleDelay.String(),
		ListingTimeout:        c.ListingTimeout.String(),
		PageLoadTimeout:       c.PageLoadTimeout.String(),
		ListingRetryDelay:     c.ListingRetryDelay.String(),
		PollInterval:          c.PollInterval.String(),
		SMTPHost:              c.SMTPHost,
		SMTPPort:              c.SMTPPort,
		SMTPUsername:          c.SMTPUsername,
		SMTPPassword:          maskSecret(c.SMTPPassword),
		NotifyFrom:            c.NotifyFrom,
		NotifyTo:              c.NotifyTo,
		NotifyWebhookURL:      c.NotifyWebhookURL,
		NotifyWebhookSecret:   maskSecret(c.NotifyWebhookSecret),
		NotifyTimeout:         c.NotifyTimeout.String(),
		RedisAddr:             c.RedisAddr,
		DatabaseURL:           maskSecret(c.DatabaseURL),
		DBOpTimeout:           c.DBOpTimeout.String(),
		RunLockKey:            c.RunLockKey,
		RunLockHeartbeat:      c.RunLockHeartbeat.String(),
		MetricsPushgatewayURL: c.MetricsPushgatewayURL,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
			return scheme + "***"
		}
	}
	return "***"
}
