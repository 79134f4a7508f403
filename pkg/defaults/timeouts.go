/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package defaults

import "time"

// Conversion timeouts for materializing an image as an OCI layout.
const (
	// ConversionTimeout bounds a single image conversion. Large multi-arch
	// images on slow links can take minutes; registry rate limiting adds more.
	ConversionTimeout = 10 * time.Minute
)

// Storage timeouts for blob transfer operations.
const (
	// StorageProbeTimeout is the timeout for a single existence check.
	StorageProbeTimeout = 10 * time.Second

	// BlobUploadTimeout is the timeout for a single blob upload attempt.
	// Base image layers routinely exceed 100 MB.
	BlobUploadTimeout = 5 * time.Minute
)

// CLI timeouts for command-line operations.
const (
	// MirrorTimeout is the default end-to-end timeout for a mirror run.
	// Must be larger than ConversionTimeout so conversion failures surface
	// with their own error rather than as a deadline.
	MirrorTimeout = 20 * time.Minute
)
