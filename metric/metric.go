package metric

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cryodb/cryo/app/logger"
)

const CName = "metric"

var log = logger.NewNamed(CName)

type Config struct {
	Enabled bool `yaml:"enabled"`
	// Addr exposes the registry over HTTP at /metrics when set.
	Addr string `yaml:"addr"`
}

// Metrics collects the database-level counters: commits, rollbacks and the
// currently pinned version count. A nil *Metrics is valid and does nothing,
// so call sites never need to guard.
type Metrics struct {
	registry *prometheus.Registry
	srv      *http.Server

	commits         prometheus.Counter
	rollbacks       prometheus.Counter
	writeErrors     prometheus.Counter
	commitDuration  prometheus.Summary
	activeVersions  prometheus.Gauge
	notifyPublished prometheus.Counter
	notifyDropped   prometheus.Counter
}

func New(c Config) *Metrics {
	if !c.Enabled {
		return nil
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryo", Subsystem: "db", Name: "commits_total",
		}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryo", Subsystem: "db", Name: "rollbacks_total",
		}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryo", Subsystem: "db", Name: "write_errors_total",
		}),
		commitDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "cryo", Subsystem: "db", Name: "commit_duration_seconds",
			Objectives: map[float64]float64{
				0.5:  0.5,
				0.85: 0.01,
				0.95: 0.0005,
				0.99: 0.0001,
			},
		}),
		activeVersions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cryo", Subsystem: "db", Name: "active_versions",
		}),
		notifyPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryo", Subsystem: "notifier", Name: "published_total",
		}),
		notifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cryo", Subsystem: "notifier", Name: "dropped_total",
		}),
	}
	m.registry.MustRegister(
		m.commits, m.rollbacks, m.writeErrors, m.commitDuration,
		m.activeVersions, m.notifyPublished, m.notifyDropped,
	)
	if err := m.registry.Register(collectors.NewGoCollector()); err != nil {
		log.Warn("can't register go collector", zap.Error(err))
	}
	if c.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
		m.srv = &http.Server{Addr: c.Addr, Handler: mux}
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Run(ctx context.Context) error {
	if m == nil || m.srv == nil {
		return nil
	}
	var errCh = make(chan error)
	go func() {
		errCh <- m.srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-time.After(time.Second / 5):
	}
	return nil
}

func (m *Metrics) Close(ctx context.Context) error {
	if m == nil || m.srv == nil {
		return nil
	}
	err := m.srv.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (m *Metrics) CommitInc() {
	if m != nil {
		m.commits.Inc()
	}
}

func (m *Metrics) RollbackInc() {
	if m != nil {
		m.rollbacks.Inc()
	}
}

func (m *Metrics) WriteErrorInc() {
	if m != nil {
		m.writeErrors.Inc()
	}
}

func (m *Metrics) ObserveCommitDuration(d time.Duration) {
	if m != nil {
		m.commitDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetActiveVersions(n int) {
	if m != nil {
		m.activeVersions.Set(float64(n))
	}
}

func (m *Metrics) NotifyPublishedInc() {
	if m != nil {
		m.notifyPublished.Inc()
	}
}

func (m *Metrics) NotifyDroppedInc() {
	if m != nil {
		m.notifyDropped.Inc()
	}
}
