package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.SessionOpened()
	m.SessionClosed()
	m.ObserveCommand("list", time.Millisecond)
	m.RecordLogin("success")
}

func TestMetrics_Sessions(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsActive))
}

func TestMetrics_Commands(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCommand("list", time.Millisecond)
	m.ObserveCommand("list", time.Millisecond)
	m.ObserveCommand("read_file", time.Millisecond)
	m.RecordLogin("success")
	m.RecordLogin("wrong_password")
	m.RecordLogin("wrong_password")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CommandsTotal.WithLabelValues("list")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CommandsTotal.WithLabelValues("read_file")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.LoginsTotal.WithLabelValues("wrong_password")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CommandDuration))
}

func TestMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.SessionOpened()
	second.SessionOpened()

	assert.Equal(t, float64(2), testutil.ToFloat64(second.SessionsActive))
}
