// Package pipeline orchestrates the image mirroring flow: materialize a
// container image as a local OCI layout, walk the layout to enumerate its
// blobs, and upload every blob to the destination object store under its
// content-addressed key.
//
// A pipeline run moves strictly through materializing, walking, uploading,
// and finalizing; only the upload stage fans out internally. Runs are not
// resumable, but re-running is cheap because already-present blobs are
// skipped.
package pipeline
