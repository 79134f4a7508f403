// Package config resolves the object storage destination configuration
// (Cloudflare R2 or any S3-compatible endpoint) used by the upload pipeline.
//
// Configuration is an explicit value passed into the pipeline at construction,
// never process-wide ambient state, so multiple pipelines with different
// destinations can run concurrently in the same process.
package config
