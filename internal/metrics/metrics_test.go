package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("GET", 200, 120*time.Millisecond)
	m.ObserveRequest("GET", 200, 80*time.Millisecond)
	m.ObserveRequest("POST", 0, time.Second)
	m.ObservePoll(PollPending)
	m.ObservePoll(PollSucceeded)
	m.ObservePoll(PollPending)
	m.SetWatched(3)
	m.BannerShown()
	m.CacheLookup("session")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("POST", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues(PollPending)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.watched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bannerShown))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("session")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", 500, time.Millisecond)
		m.ObservePoll(PollFailed)
		m.SetWatched(1)
		m.BannerShown()
		m.CacheLookup("store")
	})
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 2*time.Millisecond)
}
