/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package uploader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blobUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgvault_blob_uploads_total",
			Help: "Total number of blob upload attempts by outcome",
		},
		[]string{"outcome"}, // uploaded, skipped, failed
	)

	blobUploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imgvault_blob_upload_bytes_total",
			Help: "Total bytes successfully uploaded to the destination store",
		},
	)

	blobUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imgvault_blob_upload_duration_seconds",
			Help:    "Time taken to upload a single blob",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	blobUploadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imgvault_blob_uploads_in_flight",
			Help: "Number of blob uploads currently in progress",
		},
	)
)
