// Package cli implements the command-line interface for the imgvault tool.
//
// # Commands
//
// mirror - Convert a container image to OCI layout and upload it:
//
//	imgvault mirror --image alpine --tag 3.18
//
// Pulls the image, materializes it as an OCI layout in a scoped temporary
// directory, and uploads the manifest, config, and layer blobs to the
// configured R2/S3 bucket under content-addressed keys. Re-runs are cheap:
// blobs already present in the bucket are skipped.
//
// version - Print build information.
//
// # Configuration
//
// The destination store is configured through the environment:
//
//	CLOUDFLARE_ACCOUNT_ID   Cloudflare account (derives the R2 endpoint)
//	R2_BUCKET               destination bucket name
//	R2_ACCESS_KEY_ID        S3 API access key
//	R2_SECRET_ACCESS_KEY    S3 API secret key
//	R2_ENDPOINT             optional endpoint override (any S3-compatible store)
//	LOG_LEVEL               logging verbosity (debug, info, warn, error)
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, fatal pipeline error, failed uploads)
//	2  Context canceled or timeout
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/imgvault/imgvault/pkg/cli.version=1.0.0'"
package cli
