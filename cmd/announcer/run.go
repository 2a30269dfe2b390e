package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/djlord-it/easy-announce/internal/analytics"
	"github.com/djlord-it/easy-announce/internal/browser"
	"github.com/djlord-it/easy-announce/internal/config"
	"github.com/djlord-it/easy-announce/internal/metrics"
	"github.com/djlord-it/easy-announce/internal/notify"
	"github.com/djlord-it/easy-announce/internal/orchestrator"
	"github.com/djlord-it/easy-announce/internal/runlock"
	"github.com/djlord-it/easy-announce/internal/session"
	"github.com/djlord-it/easy-announce/internal/store/postgres"

	_ "github.com/lib/pq"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one announce pass over the group's upcoming events",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return exitWith(exitInvalidConfig, fmt.Errorf("configuration error: %w", err))
	}
	cat, err := loadLocators(cfg)
	if err != nil {
		return exitWith(exitInvalidConfig, err)
	}

	closeLog, err := setupLogging(cfg.LogFile)
	if err != nil {
		return exitWith(exitRuntimeError, err)
	}
	defer closeLog()

	logConfigWarnings(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return exitWith(exitInvalidConfig, err)
	}

	orch := orchestrator.New(orchestrator.Config{
		GroupURL:  cfg.GroupURL,
		LoginMode: session.Mode(cfg.LoginMode),
		Credentials: session.Credentials{
			LoginURL: cfg.LoginURL,
			Email:    cfg.LoginEmail,
			Password: cfg.LoginPassword,
		},
		WindowDays:        cfg.WindowDays,
		Budgets:           cfg.Budgets(),
		Locators:          cat,
		ScreenshotDir:     cfg.ScreenshotDir,
		LogPath:           cfg.LogFile,
		SideEffectTimeout: cfg.DBOpTimeout,
	}, chromeLauncher(cfg)).
		WithNotifier(notifier).
		WithPrompter(session.NewConsolePrompter(os.Stdin, os.Stdout))

	// Initialize metrics sink (optional, pushed at exit)
	var registry *prometheus.Registry
	if cfg.MetricsPushgatewayURL != "" {
		registry = prometheus.NewRegistry()
		orch = orch.WithMetrics(metrics.NewPrometheusSink(registry))
		log.Printf("announcer: metrics enabled (pushgateway=%s)", cfg.MetricsPushgatewayURL)
	}

	// Wire analytics if Redis is configured
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer redisClient.Close()
		orch = orch.WithAnalytics(analytics.NewRedisSink(redisClient))
		log.Printf("announcer: analytics enabled (redis=%s)", cfg.RedisAddr)
	}

	// History and the run lock share one database handle
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return exitWith(exitRuntimeError, fmt.Errorf("failed to open database: %w", err))
		}
		defer db.Close()

		lockCtx, cancel := context.WithTimeout(ctx, cfg.DBOpTimeout)
		lock, err := runlock.Acquire(lockCtx, db, cfg.RunLockKey)
		cancel()
		if errors.Is(err, runlock.ErrHeld) {
			log.Printf("announcer: another run holds lock %d; exiting", cfg.RunLockKey)
			return exitWith(exitRuntimeError, err)
		}
		if err != nil {
			return exitWith(exitRuntimeError, err)
		}
		defer func() {
			rctx, cancel := context.WithTimeout(context.Background(), cfg.DBOpTimeout)
			defer cancel()
			if err := lock.Release(rctx); err != nil {
				log.Printf("announcer: %v", err)
			}
		}()
		go lock.Hold(runCtx, cfg.RunLockHeartbeat, cancelRun)

		store := postgres.New(db)
		schemaCtx, cancel := context.WithTimeout(ctx, cfg.DBOpTimeout)
		err = store.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			log.Printf("announcer: run history disabled: %v", err)
		} else {
			orch = orch.WithHistory(store)
		}
	}

	res, runErr := orch.Run(runCtx)
	// Stop the lock heartbeat before the deferred release closes its connection.
	cancelRun()

	if registry != nil {
		pctx, cancel := context.WithTimeout(context.Background(), cfg.NotifyTimeout)
		if err := metrics.Push(pctx, cfg.MetricsPushgatewayURL, analytics.GroupKey(cfg.GroupURL), registry); err != nil {
			log.Printf("announcer: metrics push failed: %v", err)
		}
		cancel()
	}

	rec := res.Record
	log.Printf("announcer: run=%s finished result=%s processed=%d announced=%d failed=%d notified=%t",
		rec.ID, rec.Result, rec.Summary.Processed, rec.Summary.Announced, rec.Summary.Failed, rec.Notified)

	if runErr != nil {
		return exitWith(exitRuntimeError, runErr)
	}
	return nil
}

// chromeLauncher starts Chrome with the persistent profile. Manual login
// always gets a visible window.
func chromeLauncher(cfg config.Config) orchestrator.Launcher {
	opts := browser.LaunchOptions{
		ExecPath:   cfg.ChromePath,
		ProfileDir: cfg.ProfileDir,
		UserAgent:  cfg.UserAgent,
		Headless:   cfg.EffectiveHeadless(),
		PageLoad:   cfg.PageLoadTimeout,
	}
	return orchestrator.LauncherFunc(func(ctx context.Context) (browser.Browser, error) {
		c, err := browser.Launch(ctx, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// buildNotifier fans out to every configured channel. An empty Multi means
// reports are logged and dropped.
func buildNotifier(cfg config.Config) (notify.Notifier, error) {
	var channels notify.Multi
	if len(cfg.NotifyTo) > 0 {
		email, err := notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.NotifyFrom,
			To:       cfg.NotifyTo,
			Timeout:  cfg.NotifyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("email notifier: %w", err)
		}
		channels = append(channels, email)
	}
	if cfg.NotifyWebhookURL != "" {
		channels = append(channels, notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret, cfg.NotifyTimeout))
	}
	return channels, nil
}
