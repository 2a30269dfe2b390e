package main

import (
	"log"

	"github.com/djlord-it/easy-announce/internal/config"
)

// logConfigWarnings emits startup warnings for risky configuration.
func logConfigWarnings(cfg *config.Config) {
	if !cfg.NotificationConfigured() {
		log.Println("announcer: WARNING: neither NOTIFY_TO nor NOTIFY_WEBHOOK_URL is set; failures will only be logged")
	}
	if cfg.LoginMode == "manual" && cfg.Headless {
		log.Println("announcer: INFO: LOGIN_MODE=manual forces HEADLESS=false")
	}
	if cfg.LoginMode == "credentials" {
		log.Println("announcer: INFO: LOGIN_MODE=credentials may trigger a captcha; prefer a persistent profile")
	}
	if cfg.WindowDays == 0 {
		log.Println("announcer: WARNING: WINDOW_DAYS=0; only events starting within the next day qualify")
	}
	if cfg.DatabaseURL == "" {
		log.Println("announcer: INFO: DATABASE_URL not set; run history and run lock disabled")
	}
}
