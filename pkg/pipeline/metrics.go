/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imgvault_pipeline_duration_seconds",
			Help:    "Time taken by a complete pipeline run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgvault_pipeline_runs_total",
			Help: "Total number of pipeline runs by status",
		},
		[]string{"status"}, // success, partial, error, cancelled
	)
)
