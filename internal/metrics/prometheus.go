package metrics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name runs are grouped under.
const PushJob = "announcer"

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Run metrics
	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	lastRunTimestamp   prometheus.Gauge
	eventOutcomesTotal *prometheus.CounterVec

	// Locator metrics
	locatorMatchesTotal *prometheus.CounterVec

	// Notification metrics
	notificationsTotal *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initRunMetrics(reg)
	s.initLocatorMetrics(reg)
	s.initNotificationMetrics(reg)
	return s
}

func (s *PrometheusSink) initRunMetrics(reg prometheus.Registerer) {
	s.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "announcer_runs_total",
		Help: "Total number of announcer runs by result.",
	}, []string{"result"})
	s.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "announcer_run_duration_seconds",
		Help:    "Wall-clock duration of a run in seconds.",
		Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
	})
	s.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "announcer_last_run_timestamp_seconds",
		Help: "Unix time the last run completed.",
	})
	s.eventOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "announcer_event_outcomes_total",
		Help: "Total number of per-event outcomes by kind.",
	}, []string{"outcome"})

	s.register(reg, s.runsTotal, "announcer_runs_total")
	s.register(reg, s.runDuration, "announcer_run_duration_seconds")
	s.register(reg, s.lastRunTimestamp, "announcer_last_run_timestamp_seconds")
	s.register(reg, s.eventOutcomesTotal, "announcer_event_outcomes_total")
}

func (s *PrometheusSink) initLocatorMetrics(reg prometheus.Registerer) {
	s.locatorMatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "announcer_locator_matches_total",
		Help: "Total number of successful locator lookups by site and variant.",
	}, []string{"site", "variant"})

	s.register(reg, s.locatorMatchesTotal, "announcer_locator_matches_total")
}

func (s *PrometheusSink) initNotificationMetrics(reg prometheus.Registerer) {
	s.notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "announcer_notifications_total",
		Help: "Total number of notification deliveries by channel and result.",
	}, []string{"channel", "result"})

	s.register(reg, s.notificationsTotal, "announcer_notifications_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) RunCompleted(result string, duration time.Duration) {
	s.runsTotal.WithLabelValues(result).Inc()
	s.runDuration.Observe(duration.Seconds())
	s.lastRunTimestamp.SetToCurrentTime()
}

func (s *PrometheusSink) EventOutcome(outcome string) {
	s.eventOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) LocatorMatched(site, variant string) {
	s.locatorMatchesTotal.WithLabelValues(site, variant).Inc()
}

func (s *PrometheusSink) NotificationCompleted(channel, statusClass string) {
	s.notificationsTotal.WithLabelValues(channel, statusClass).Inc()
}

// Push sends everything gathered from g to a Pushgateway, grouped by the
// group instance so several groups can share one gateway. A run is a
// short-lived batch job, so there is no scrape endpoint.
func Push(ctx context.Context, gatewayURL, instance string, g prometheus.Gatherer) error {
	p := push.New(gatewayURL, PushJob).Gatherer(g)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
