package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	MatchRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_runs_total",
			Help: "Total number of vacancy matching runs by final state.",
		},
		[]string{"status"},
	)
	MatchRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matcher_run_duration_seconds",
			Help:    "Duration of each vacancy matching run in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)
	MatchStepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "matcher_run_step_duration_seconds",
			Help:       "Duration of each step of the matching pipeline.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	EvaluationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_evaluations_total",
			Help: "Total number of candidate evaluations by kind.",
		},
		[]string{"kind"},
	)
	PersistedResultsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_results_persisted_total",
			Help: "Total number of persisted match result rows.",
		},
	)
	QueueJobsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_queue_jobs_total",
			Help: "Total number of consumed queue jobs by outcome.",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ErrorsCounter)
		prometheus.MustRegister(MatchRunsCounter)
		prometheus.MustRegister(MatchRunDuration)
		prometheus.MustRegister(MatchStepDuration)
		prometheus.MustRegister(EvaluationsCounter)
		prometheus.MustRegister(PersistedResultsCounter)
		prometheus.MustRegister(QueueJobsCounter)
	})
}

// StartMetricsServer registers the collectors and serves /metrics on addr.
// It returns the server so the caller can shut it down.
func StartMetricsServer(addr string) *http.Server {

	register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics server failed: %v", err)
		}
	}()

	log.Infof("metrics server listening on %s", addr)
	return server
}
