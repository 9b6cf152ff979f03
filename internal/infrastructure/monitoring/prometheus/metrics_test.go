package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)
	require.NotNil(t, m)

	m.ObservePlan("success")
	m.ObserveSearch("hybrid", "success", 0.2, 10)
	m.ObserveAlignment("success", 1.1)
	m.ObserveNovelty("error", 0.4)
	m.ObserveProviderFailure("embed")
	m.ObserveSnapshot(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesPlannedTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("hybrid", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlignmentsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NoveltyScoringsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderFailuresTotal.WithLabelValues("embed")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.CorpusSnapshotDocs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorpusRebuildsTotal))
}

func TestPipelineMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *PipelineMetrics
	m.ObservePlan("success")
	m.ObserveSearch("dense", "success", 0.1, 3)
	m.ObserveAlignment("success", 0.1)
	m.ObserveNovelty("success", 0.1)
	m.ObserveProviderFailure("lexical")
	m.ObserveSnapshot(1)
}
