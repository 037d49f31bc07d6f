// SPDX-License-Identifier: MIT

// Package metrics exposes prometheus counters for the fetch engine and the
// completion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autowallpaper_fetch_attempts_total",
		Help: "Download attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autowallpaper_fetch_failures_total",
		Help: "Failed download attempts by failure class",
	}, []string{"class"}) // class=transport|http_status|local_io

	fetchSleepSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autowallpaper_fetch_sleep_seconds_total",
		Help: "Total seconds spent sleeping between retry attempts",
	})

	stageTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autowallpaper_stage_transitions_total",
		Help: "Completion tracker stage transitions (false to true)",
	}, []string{"stage"})

	archivedFoldersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autowallpaper_archived_folders_total",
		Help: "Date folders moved into the archive",
	})
)

// IncFetchAttempt records one finished attempt by outcome.
func IncFetchAttempt(outcome string) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// IncFetchFailure records one failed attempt by class.
func IncFetchFailure(class string) {
	fetchFailuresTotal.WithLabelValues(class).Inc()
}

// AddFetchSleep accumulates retry sleep time in seconds.
func AddFetchSleep(seconds float64) {
	fetchSleepSeconds.Add(seconds)
}

// IncStage records a completion stage transition.
func IncStage(stage string) {
	stageTransitionsTotal.WithLabelValues(stage).Inc()
}

// AddArchived records folders moved to the archive.
func AddArchived(n int) {
	archivedFoldersTotal.Add(float64(n))
}
