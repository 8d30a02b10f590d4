package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kvmesh"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Keyspace metrics
	ExpiredKeys *prometheus.CounterVec

	// Persistence metrics
	SnapshotSaves    *prometheus.CounterVec
	SnapshotDuration prometheus.Histogram

	// PubSub metrics
	MessagesPublished  prometheus.Counter
	MessagesDelivered  prometheus.Counter
	SubscribersDropped prometheus.Counter

	// Connection metrics
	ConnectionsActive prometheus.Gauge
	RateLimited       *prometheus.CounterVec
}

// NewRegistry creates a registry with the Go runtime and process collectors
// plus every kvmesh metric.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		reg: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "total",
			Help:      "Commands executed, by command name and result status.",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Command execution latency including lock wait.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"command"}),
		ExpiredKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keyspace",
			Name:      "expired_keys_total",
			Help:      "Keys evicted by the active expiry sweep.",
		}, []string{"path"}),
		SnapshotSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "saves_total",
			Help:      "Keyspace saves, by backend and result.",
		}, []string{"backend", "result"}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "save_duration_seconds",
			Help:      "Time spent writing one keyspace save.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "messages_published_total",
			Help:      "PUBLISH calls handled.",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "messages_delivered_total",
			Help:      "Messages enqueued to subscriber endpoints.",
		}),
		SubscribersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "subscribers_dropped_total",
			Help:      "Subscriber endpoints closed because their queue overflowed.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Open RESP client connections.",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}, []string{"listener"}),
	}

	reg.MustRegister(
		r.CommandsTotal,
		r.CommandDuration,
		r.ExpiredKeys,
		r.SnapshotSaves,
		r.SnapshotDuration,
		r.MessagesPublished,
		r.MessagesDelivered,
		r.SubscribersDropped,
		r.ConnectionsActive,
		r.RateLimited,
	)
	return r
}

// Register adds an extra collector, e.g. a storage backend's own gauges.
func (r *Registry) Register(c prometheus.Collector) error {
	if r == nil {
		return nil
	}
	return r.reg.Register(c)
}

// Prometheus exposes the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveCommand records one executed command.
func (r *Registry) ObserveCommand(command, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(command, status).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveExpired records keys evicted by path ("sweep" or "load").
func (r *Registry) ObserveExpired(path string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.ExpiredKeys.WithLabelValues(path).Add(float64(n))
}

// ObserveSave records one persistence attempt.
func (r *Registry) ObserveSave(backend string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.SnapshotSaves.WithLabelValues(backend, result).Inc()
	r.SnapshotDuration.Observe(elapsed.Seconds())
}

// ObservePublish records one PUBLISH and how many endpoints accepted it.
func (r *Registry) ObservePublish(delivered, dropped int) {
	if r == nil {
		return
	}
	r.MessagesPublished.Inc()
	r.MessagesDelivered.Add(float64(delivered))
	r.SubscribersDropped.Add(float64(dropped))
}

// ConnOpened and ConnClosed track active connections.
func (r *Registry) ConnOpened() {
	if r != nil {
		r.ConnectionsActive.Inc()
	}
}

func (r *Registry) ConnClosed() {
	if r != nil {
		r.ConnectionsActive.Dec()
	}
}

// ObserveRateLimited records a rejected request on listener.
func (r *Registry) ObserveRateLimited(listener string) {
	if r != nil {
		r.RateLimited.WithLabelValues(listener).Inc()
	}
}
