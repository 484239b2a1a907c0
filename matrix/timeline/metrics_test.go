package timeline

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomline/matrix/mxevents"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	_, err := New([]mxevents.Event{
		react("r", bob, 2, "1", "👍"),
		msg("1", alice, 1, "hello"),
		react("r", bob, 2, "1", "👍"),
		{Kind: mxevents.KindReaction, ID: "broken"},
	}, WithMetrics(m))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("reaction", outcomeStashed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("message", outcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("reaction", outcomeReacted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("reaction", outcomeRedundant)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("reaction", outcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replayed))
	assert.Zero(t, testutil.ToFloat64(m.Violations))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe("message", outcomeCreated)
		m.replayed(3)
		m.violation()
	})
}
