package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dragonvpn"

// Poll outcomes recorded by the payment monitor.
const (
	PollPending   = "pending"
	PollSucceeded = "succeeded"
	PollCanceled  = "canceled"
	PollExpired   = "expired"
	PollNotFound  = "not_found"
	PollFailed    = "failed"
	PollDropped   = "dropped"
)

// Metrics groups the client's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	apiRequests  *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	polls        *prometheus.CounterVec
	watched      prometheus.Gauge
	bannerShown  prometheus.Counter
	cacheLookups *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend requests by method and status code.",
		}, []string{"method", "code"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "polls_total",
			Help:      "Payment status fetches by outcome.",
		}, []string{"outcome"}),
		watched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "watched",
			Help:      "Payments currently being polled.",
		}),
		bannerShown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "banner",
			Name:      "shown_total",
			Help:      "Payments shown in the banner.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache reads by tier that answered.",
		}, []string{"tier"}),
	}

	if reg != nil {
		reg.MustRegister(m.apiRequests, m.apiLatency, m.polls, m.watched, m.bannerShown, m.cacheLookups)
	}
	return m
}

// ObserveRequest records one backend round trip. code is 0 for transport
// failures.
func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.apiRequests.WithLabelValues(method, label).Inc()
	m.apiLatency.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ObservePoll(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetWatched(n int) {
	if m == nil {
		return
	}
	m.watched.Set(float64(n))
}

func (m *Metrics) BannerShown() {
	if m == nil {
		return
	}
	m.bannerShown.Inc()
}

func (m *Metrics) CacheLookup(tier string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(tier).Inc()
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
