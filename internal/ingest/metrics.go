package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_outcomes_total",
		Help: "Ingest requests by outcome kind.",
	}, []string{"kind"})
	mStageDur = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_stage_duration_seconds",
		Help:    "Time spent per ingest stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	mRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_rows_committed_total",
		Help: "Measurement rows committed.",
	})
	mViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_violations_total",
		Help: "Validation violations by code.",
	}, []string{"code"})
)
