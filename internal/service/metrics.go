package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	autopilotRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kolink_autopilot_runs_total",
			Help: "Total number of recorded autopilot runs, partitioned by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)
	creditsReservedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kolink_credits_reserved_total",
			Help: "Total number of credits reserved for generation runs.",
		},
	)
)
