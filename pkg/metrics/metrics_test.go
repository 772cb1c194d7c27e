package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()
	m.RequestTransitioned("AWAITING_CLIENT", "FOLLOW_UP")
	m.RequestTransitioned("AWAITING_CLIENT", "FOLLOW_UP")
	m.RequestCreated("CASH")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("AWAITING_CLIENT", "FOLLOW_UP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.created.WithLabelValues("CASH")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RequestTransitioned("a", "b")
		m.RequestCreated("CASH")
	})
}
