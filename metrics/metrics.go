package metrics

import (
	"context"
	"net/http"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "hangar"
	subsystem = "server"
)

// Metrics holds the collectors exported by the line server. All methods are
// nil-safe so that a nil *Metrics can be passed around when metrics are
// disabled.
type Metrics struct {
	BootTimeSeconds prometheus.Gauge
	SessionsActive  prometheus.Gauge
	// CommandsTotal counts executed commands by command word. Unknown words are
	// all counted under "unknown".
	CommandsTotal *prometheus.CounterVec
	// LoginsTotal counts login attempts by result.
	LoginsTotal     *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with the given registerer. If
// reg is nil the collectors are created but not registered. Collectors that were
// already registered are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BootTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "boot_time_seconds",
			Help:      "Boot time of this instance since epoch (1970)",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_active",
			Help:      "Number of client connections currently being served",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_total",
			Help:      "Total number of commands executed",
		}, []string{"command"}),
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "logins_total",
			Help:      "Total number of login attempts by result",
		}, []string{"result"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "command_duration_seconds",
			Help:      "Time taken to execute a command",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"command"}),
	}

	if reg != nil {
		m.BootTimeSeconds = registerOrReuse(reg, m.BootTimeSeconds).(prometheus.Gauge)
		m.SessionsActive = registerOrReuse(reg, m.SessionsActive).(prometheus.Gauge)
		m.CommandsTotal = registerOrReuse(reg, m.CommandsTotal).(*prometheus.CounterVec)
		m.LoginsTotal = registerOrReuse(reg, m.LoginsTotal).(*prometheus.CounterVec)
		m.CommandDuration = registerOrReuse(reg, m.CommandDuration).(*prometheus.HistogramVec)
	}
	m.BootTimeSeconds.Set(float64(time.Now().UnixNano()) / 1e9)

	return m
}

// SessionOpened increments the active sessions gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// ObserveCommand records a single executed command and the time it took.
func (m *Metrics) ObserveCommand(command string, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// RecordLogin increments the login counter for the given result.
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// Serve exposes the collectors of the gatherer on the given address until the
// context is canceled.
func Serve(ctx context.Context, bind string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: time.Second * 10,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.WithField("error", err).Warn("metrics: failed to shutdown server cleanly")
		}
	}()

	log.WithField("bind", bind).Info("metrics: serving prometheus collectors")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "metrics: failed to start server")
	}
	return nil
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
