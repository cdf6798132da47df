package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newscrawlr",
			Name:      "crawls_total",
			Help:      "Total number of executed crawl tasks",
		},
		[]string{"status"},
	)

	crawlDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newscrawlr",
			Name:      "crawl_duration_seconds",
			Help:      "Duration of crawl tasks in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	articlesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newscrawlr",
			Name:      "articles_stored_total",
			Help:      "Total number of new articles stored",
		},
	)

	schedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newscrawlr",
			Name:      "scheduler_running",
			Help:      "Scheduler loop state (1 = running, 0 = stopped)",
		},
	)
)
