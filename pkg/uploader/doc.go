// Package uploader transfers content-addressed blobs to a destination
// object store.
//
// Each task's remote key is a pure function of its digest, so uploads are
// idempotent: blobs already present in the bucket are skipped, and a
// concurrent create between the existence check and the write is harmless
// because the content is identical by construction.
//
// Uploads fan out across a bounded worker pool. Transient failures are
// retried with exponential backoff; exhausted retries and integrity
// mismatches are recorded per task without aborting sibling transfers.
package uploader
