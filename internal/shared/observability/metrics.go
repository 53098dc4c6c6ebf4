package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FilesAnalyzedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexalint_files_analyzed_total",
		Help: "Total number of files run through the rule engines.",
	}, []string{"extension"})

	IssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexalint_issues_total",
		Help: "Total number of issues reported, by kind and severity.",
	}, []string{"kind", "severity"})

	RuleFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexalint_rule_failures_total",
		Help: "Total number of rule evaluations that failed and were isolated.",
	}, []string{"rule"})

	ReadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexalint_read_errors_total",
		Help: "Total number of source files that could not be read.",
	})

	FileAnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexalint_file_analysis_seconds",
		Help:    "Time spent analysing a single source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"extension"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexalint_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	ProjectScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexalint_project_score",
		Help: "Overall score of the most recent analysis run.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexalint_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HistoryWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexalint_history_write_errors_total",
		Help: "Total number of run snapshots that could not be persisted.",
	})

	HistoryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexalint_history_queue_depth",
		Help: "Run snapshots waiting to be persisted.",
	})

	HistoryQueueDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexalint_history_queue_dropped_total",
		Help: "Run snapshots written synchronously because the queue was full.",
	})
)
