// Package metrics exposes Prometheus instrumentation for a resolver
// instance: registration and value throughput, window dispatch latency,
// and execution-order length, scrapeable continuously rather than only
// logged at shutdown.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for one resolver instance. Multiple
// instances in the same process should each get their own registry (via
// New) and a distinguishing "resolver" label, mirroring how a multi-tenant
// window-per-circuit deployment would want per-instance dashboards.
type Metrics struct {
	ValuesAdded        prometheus.Counter
	RegistrationsAdded prometheus.Counter
	ResolutionsRun     prometheus.Counter
	WindowDispatchSecs prometheus.Histogram
	OrderCommittedLen  prometheus.Gauge
	OrderSpeculative   prometheus.Gauge

	// RegistrationDurationSecs observes the wall-clock cost of each
	// SetValue/AddResolution call on the foreground goroutine.
	RegistrationDurationSecs prometheus.Histogram
	// TotalResolutionSecs is set once, at WaitTillResolved, to the
	// wall-clock time between a resolver's construction and its drain.
	TotalResolutionSecs prometheus.Gauge
}

// New constructs a Metrics bundle and registers its collectors with reg.
// Passing prometheus.NewRegistry() keeps instances isolated in tests;
// passing prometheus.DefaultRegisterer wires it into the process-wide
// /metrics endpoint.
func New(reg prometheus.Registerer, instance string) *Metrics {
	labels := prometheus.Labels{"resolver": instance}

	m := &Metrics{
		ValuesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "circuitresolver",
			Name:        "values_added_total",
			Help:        "Number of direct set_value calls accepted.",
			ConstLabels: labels,
		}),
		RegistrationsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "circuitresolver",
			Name:        "registrations_added_total",
			Help:        "Number of add_resolution calls accepted.",
			ConstLabels: labels,
		}),
		ResolutionsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "circuitresolver",
			Name:        "resolutions_run_total",
			Help:        "Number of resolver closures invoked by the window.",
			ConstLabels: labels,
		}),
		WindowDispatchSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "circuitresolver",
			Name:        "window_dispatch_seconds",
			Help:        "Wall-clock time to run one chunk's resolutions.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		OrderCommittedLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "circuitresolver",
			Name:        "execution_order_committed_length",
			Help:        "Committed prefix length of the execution order.",
			ConstLabels: labels,
		}),
		OrderSpeculative: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "circuitresolver",
			Name:        "execution_order_speculative_length",
			Help:        "Appended-but-not-yet-committed length of the execution order.",
			ConstLabels: labels,
		}),
		RegistrationDurationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "circuitresolver",
			Name:        "registration_duration_seconds",
			Help:        "Wall-clock time spent inside one SetValue or AddResolution call.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		TotalResolutionSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "circuitresolver",
			Name:        "total_resolution_seconds",
			Help:        "Wall-clock time between resolver construction and the last WaitTillResolved drain.",
			ConstLabels: labels,
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ValuesAdded,
			m.RegistrationsAdded,
			m.ResolutionsRun,
			m.WindowDispatchSecs,
			m.OrderCommittedLen,
			m.OrderSpeculative,
			m.RegistrationDurationSecs,
			m.TotalResolutionSecs,
		)
	}

	return m
}

// Noop returns a Metrics bundle whose collectors are never registered with
// any registry, for callers (tests, or resolvers that don't care about
// metrics) that still want to call the recording methods unconditionally.
func Noop() *Metrics {
	return New(nil, "noop")
}
