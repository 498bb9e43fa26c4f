// Package metrics exposes prometheus instrumentation for the timer engine
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "cronos_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	commandsTotal  *prometheus.CounterVec
	persistTotal   *prometheus.CounterVec
	persistLatency *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
	activeTimers   prometheus.GaugeFunc

	activeMu     sync.RWMutex
	activeSource func() float64
)

// Init registers the timer metrics with the default registry on its first
// call. Every call rebinds the active_timers gauge to active, which is
// polled on each scrape and may be nil.
func Init(active func() float64) {
	activeMu.Lock()
	activeSource = active
	activeMu.Unlock()

	registerOnce.Do(func() {
		commandsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_total",
				Help: "Total timer commands by command and result",
			},
			[]string{"command", "result"},
		)
		persistTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "persist_total",
				Help: "Total ledger writes by operation and result",
			},
			[]string{"op", "result"},
		)
		persistLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "persist_latency_seconds",
				Help:    "Ledger write latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		)
		queueDepth = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "persist_queue_depth",
				Help: "Ledger writes waiting for the writer",
			},
		)
		activeTimers = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "active_timers",
				Help: "Stage timers currently running",
			},
			readActive,
		)

		prometheus.MustRegister(
			commandsTotal,
			persistTotal,
			persistLatency,
			queueDepth,
			activeTimers,
		)
	})
}

func readActive() float64 {
	activeMu.RLock()
	f := activeSource
	activeMu.RUnlock()

	if f == nil {
		return 0
	}

	return f()
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}

	return ResultSuccess
}

// IncCommand counts a handled command.
func IncCommand(command string, err error) {
	if commandsTotal != nil {
		commandsTotal.WithLabelValues(command, resultOf(err)).Inc()
	}
}

// ObservePersist records the outcome and duration of a ledger write.
func ObservePersist(op string, err error, duration time.Duration) {
	if persistTotal != nil {
		persistTotal.WithLabelValues(op, resultOf(err)).Inc()
	}

	if persistLatency != nil {
		persistLatency.WithLabelValues(op).Observe(duration.Seconds())
	}
}

// SetQueueDepth reports the number of pending ledger writes.
func SetQueueDepth(n int) {
	if queueDepth != nil {
		queueDepth.Set(float64(n))
	}
}
