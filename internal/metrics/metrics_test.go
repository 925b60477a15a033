package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EventsIngested.WithLabelValues("created-goal").Inc()
	m.DigestErrors.WithLabelValues("home", "unknown_program").Inc()
	m.DigestDuration.WithLabelValues("home").Observe(0.01)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
		if f.GetName() == "sorters_events_ingested_total" {
			require.Equal(t, float64(1), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.ElementsMatch(t, []string{
		"sorters_events_ingested_total",
		"sorters_digest_errors_total",
		"sorters_digest_duration_seconds",
	}, names)

	// a second registry accepts the same collectors
	require.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
