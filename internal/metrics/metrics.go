package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsStarted counts started workflow phases ("storyboard" or "drama").
	RunsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sorashorts_runs_started_total",
		Help: "Workflow phases started.",
	}, []string{"phase"})

	// RunsSucceeded counts phases that reached their end state.
	RunsSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sorashorts_runs_succeeded_total",
		Help: "Workflow phases finished successfully.",
	}, []string{"phase"})

	// StageFailures counts hard failures by pipeline stage.
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sorashorts_stage_failures_total",
		Help: "Hard failures surfaced to the user, by stage.",
	}, []string{"stage"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sorashorts_stage_duration_seconds",
		Help:    "Backend round trip duration by stage.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"stage"})

	PollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sorashorts_video_poll_attempts",
		Help:    "Status checks per video job.",
		Buckets: prometheus.LinearBuckets(0, 10, 13),
	})

	GenderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sorashorts_gender_fallbacks_total",
		Help: "Gender detections that fell back to the default.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sorashorts_wizard_sessions",
		Help: "Wizard sessions held in memory.",
	})
)
