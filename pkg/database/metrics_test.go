package database

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramCount(t *testing.T, system, operation, status string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != "db_query_duration_seconds" {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["system"] == system && labels["operation"] == operation && labels["status"] == status {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func TestTraceQuery_ObservesDurationByOutcome(t *testing.T) {
	setupTestTracer(t)

	okBefore := histogramCount(t, "elasticsearch", "metrics-test", "ok")
	errBefore := histogramCount(t, "elasticsearch", "metrics-test", "error")

	_, end := TraceQuery(context.Background(), Query{System: "elasticsearch", Operation: "metrics-test"})
	end(nil)
	_, end = TraceQuery(context.Background(), Query{System: "elasticsearch", Operation: "metrics-test"})
	end(errors.New("boom"))
	_, end = TraceQuery(context.Background(), Query{System: "elasticsearch", Operation: "metrics-test"})
	end(nil)

	assert.Equal(t, okBefore+2, histogramCount(t, "elasticsearch", "metrics-test", "ok"))
	assert.Equal(t, errBefore+1, histogramCount(t, "elasticsearch", "metrics-test", "error"))
}
