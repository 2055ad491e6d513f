package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// CRMMetrics exposes counters/histograms for lead mutations, realtime
// broadcasts and HTTP traffic.
type CRMMetrics struct {
	mutationsTotal  *prometheus.CounterVec
	publishedTotal  *prometheus.CounterVec
	droppedTotal    prometheus.Counter
	sessions        prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

func NewCRMMetrics(reg prometheus.Registerer) *CRMMetrics {
	m := &CRMMetrics{
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadcrm",
			Subsystem: "leads",
			Name:      "mutations_total",
			Help:      "Lead create/update/delete operations by outcome",
		}, []string{"op", "status"}),
		publishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadcrm",
			Subsystem: "realtime",
			Name:      "published_total",
			Help:      "Realtime events delivered to session buffers",
		}, []string{"event"}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadcrm",
			Subsystem: "realtime",
			Name:      "dropped_total",
			Help:      "Realtime events dropped because a session buffer was full",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadcrm",
			Subsystem: "realtime",
			Name:      "sessions",
			Help:      "Currently joined realtime sessions",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadcrm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.mutationsTotal, m.publishedTotal, m.droppedTotal, m.sessions, m.requestDuration)
	return m
}

func (m *CRMMetrics) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.mutationsTotal.WithLabelValues(op, status).Inc()
}

func (m *CRMMetrics) ObservePublished(event string) {
	if m == nil {
		return
	}
	m.publishedTotal.WithLabelValues(event).Inc()
}

func (m *CRMMetrics) ObserveDropped() {
	if m == nil {
		return
	}
	m.droppedTotal.Inc()
}

func (m *CRMMetrics) SessionJoined() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *CRMMetrics) SessionLeft() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

func (m *CRMMetrics) ObserveHTTPRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
