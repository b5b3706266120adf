package coordinator

import "github.com/VictoriaMetrics/metrics"

var (
	runsStarted    = metrics.NewCounter(`lintgutter_runs_total{state="started"}`)
	runsSuperseded = metrics.NewCounter(`lintgutter_runs_total{state="superseded"}`)
	runsFailed     = metrics.NewCounter(`lintgutter_runs_total{state="failed"}`)
	runsPublished  = metrics.NewCounter(`lintgutter_runs_total{state="published"}`)

	runDuration = metrics.NewHistogram(`lintgutter_run_duration_seconds`)
)
