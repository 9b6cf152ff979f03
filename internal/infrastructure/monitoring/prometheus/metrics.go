// Package prometheus registers and exposes the pipeline's Prometheus
// metrics.  Application services receive *PipelineMetrics via constructor
// injection; a nil receiver disables collection so tests need no registry.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default histogram buckets for pipeline stage latencies, in seconds.
var stageDurationBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// PipelineMetrics holds all metrics emitted by the four pipeline stages.
type PipelineMetrics struct {
	QueriesPlannedTotal   *prometheus.CounterVec
	SearchesTotal         *prometheus.CounterVec
	SearchDuration        *prometheus.HistogramVec
	SearchResultCount     prometheus.Histogram
	AlignmentsTotal       *prometheus.CounterVec
	AlignmentDuration     prometheus.Histogram
	NoveltyScoringsTotal  *prometheus.CounterVec
	NoveltyDuration       prometheus.Histogram
	ProviderFailuresTotal *prometheus.CounterVec
	CorpusSnapshotDocs    prometheus.Gauge
	CorpusRebuildsTotal   prometheus.Counter
}

// NewPipelineMetrics registers every pipeline metric on reg and returns the
// collection.  Pass prometheus.DefaultRegisterer in binaries.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		QueriesPlannedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patent_queries_planned_total",
			Help: "Total query-planning requests, by outcome.",
		}, []string{"outcome"}),
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patent_searches_total",
			Help: "Total retrieval requests, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patent_search_duration_seconds",
			Help:    "Retrieval latency, by mode.",
			Buckets: stageDurationBuckets,
		}, []string{"mode"}),
		SearchResultCount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "patent_search_result_count",
			Help:    "Number of results returned per search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		AlignmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patent_alignments_total",
			Help: "Total clause-alignment requests, by outcome.",
		}, []string{"outcome"}),
		AlignmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "patent_alignment_duration_seconds",
			Help:    "Clause-alignment latency.",
			Buckets: stageDurationBuckets,
		}),
		NoveltyScoringsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patent_novelty_scorings_total",
			Help: "Total novelty-scoring requests, by outcome.",
		}, []string{"outcome"}),
		NoveltyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "patent_novelty_scoring_duration_seconds",
			Help:    "Novelty-scoring latency.",
			Buckets: stageDurationBuckets,
		}),
		ProviderFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patent_provider_failures_total",
			Help: "Similarity-provider failures absorbed as degraded scores, by kind.",
		}, []string{"kind"}),
		CorpusSnapshotDocs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "patent_corpus_snapshot_documents",
			Help: "Documents in the currently served lexical corpus snapshot.",
		}),
		CorpusRebuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "patent_corpus_rebuilds_total",
			Help: "Completed lexical corpus snapshot rebuilds.",
		}),
	}
}

// ObserveSearch records one search, guarding against a nil receiver.
func (m *PipelineMetrics) ObserveSearch(mode, outcome string, seconds float64, results int) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(mode, outcome).Inc()
	m.SearchDuration.WithLabelValues(mode).Observe(seconds)
	m.SearchResultCount.Observe(float64(results))
}

// ObserveAlignment records one alignment run.
func (m *PipelineMetrics) ObserveAlignment(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.AlignmentsTotal.WithLabelValues(outcome).Inc()
	m.AlignmentDuration.Observe(seconds)
}

// ObserveNovelty records one scoring run.
func (m *PipelineMetrics) ObserveNovelty(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.NoveltyScoringsTotal.WithLabelValues(outcome).Inc()
	m.NoveltyDuration.Observe(seconds)
}

// ObservePlan records one planning request.
func (m *PipelineMetrics) ObservePlan(outcome string) {
	if m == nil {
		return
	}
	m.QueriesPlannedTotal.WithLabelValues(outcome).Inc()
}

// ObserveProviderFailure records one absorbed provider failure.
func (m *PipelineMetrics) ObserveProviderFailure(kind string) {
	if m == nil {
		return
	}
	m.ProviderFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveSnapshot records a completed corpus rebuild of docs documents.
func (m *PipelineMetrics) ObserveSnapshot(docs int) {
	if m == nil {
		return
	}
	m.CorpusSnapshotDocs.Set(float64(docs))
	m.CorpusRebuildsTotal.Inc()
}
