// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeUpload,
//	    "failed to upload blob",
//	    putErr,
//	    map[string]interface{}{
//	        "digest": task.Digest.String(),
//	        "key":    task.RemoteKey,
//	    },
//	)
package errors
