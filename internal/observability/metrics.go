package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssociationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mallid",
		Name:      "associations_total",
		Help:      "Total number of associations produced, by decision",
	}, []string{"mall_id", "decision"})

	JourneysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mallid",
		Name:      "journeys_total",
		Help:      "Total number of journeys materialized, by closed state",
	}, []string{"mall_id", "closed"})

	ArbitrationRounds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mallid",
		Name:      "arbitration_rounds",
		Help:      "Number of collision-resolution rounds a batch run needed",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	}, []string{"mall_id"})

	ScoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mallid",
		Name:      "scoring_duration_seconds",
		Help:      "Wall-clock time spent scoring one target's candidate list",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"mall_id"})

	CandidatePoolSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mallid",
		Name:      "candidate_pool_size",
		Help:      "Number of admissible candidates retrieved per target",
		Buckets:   prometheus.LinearBuckets(0, 4, 15),
	}, []string{"mall_id"})

	WorkerPoolActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mallid",
		Name:      "worker_pool_active",
		Help:      "Number of scoring workers currently processing a target",
	}, []string{"mall_id"})

	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mallid",
		Name:      "batch_duration_seconds",
		Help:      "Total wall-clock duration of one batch run, by stage",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"mall_id", "stage"})

	OrphanChainsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mallid",
		Name:      "orphan_chains_total",
		Help:      "Chains discarded for not being anchored at an entrance pin",
	}, []string{"mall_id"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mallid",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mallid",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections watching run progress",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mallid",
		Name:      "run_queue_depth",
		Help:      "Number of pending batch run triggers in the RUNS stream",
	})
)
