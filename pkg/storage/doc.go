// Package storage abstracts the destination object store behind the
// ObjectStore interface: existence check, streaming put, and size stat.
//
// The S3 implementation targets any S3-compatible endpoint and is configured
// for Cloudflare R2 by default. Memory is a deterministic in-process fake
// used by tests for idempotency and integrity scenarios.
package storage
