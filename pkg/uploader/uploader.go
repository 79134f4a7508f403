/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/imgvault/imgvault/pkg/errors"
	"github.com/imgvault/imgvault/pkg/layout"
	"github.com/imgvault/imgvault/pkg/storage"
)

const (
	// DefaultConcurrency bounds simultaneous transfers to respect
	// storage API rate limits.
	DefaultConcurrency = 4
	// DefaultMaxRetries is the number of retries after the first failed
	// attempt of a storage operation.
	DefaultMaxRetries = 3

	defaultInitialBackoff = 500 * time.Millisecond
)

// Failure records one task that could not be transferred.
type Failure struct {
	// Task is the blob that failed.
	Task layout.Task `json:"task" yaml:"task"`
	// Code classifies the failure (UPLOAD or INTEGRITY).
	Code errors.ErrorCode `json:"code" yaml:"code"`
	// Error is the underlying error text.
	Error string `json:"error" yaml:"error"`
}

// Result aggregates per-task outcomes of one Upload call.
type Result struct {
	// Uploaded counts blobs transferred by this run.
	Uploaded int `json:"uploaded" yaml:"uploaded"`
	// Skipped counts blobs already present in the destination.
	Skipped int `json:"skipped" yaml:"skipped"`
	// Failures lists failed tasks in task order.
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Uploader transfers layout tasks to an object store.
type Uploader struct {
	store       storage.ObjectStore
	concurrency int
	maxRetries  uint64
	initialWait time.Duration
	limiter     *rate.Limiter
}

// Option defines a functional option for configuring the Uploader.
type Option func(*Uploader)

// WithConcurrency sets the worker pool size. Values below 1 fall back to
// the default.
func WithConcurrency(n int) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithMaxRetries sets how many times a failed storage operation is retried
// before the task is recorded as failed.
func WithMaxRetries(n uint64) Option {
	return func(u *Uploader) {
		u.maxRetries = n
	}
}

// WithInitialBackoff sets the first retry interval. Mostly useful to keep
// tests fast.
func WithInitialBackoff(d time.Duration) Option {
	return func(u *Uploader) {
		if d > 0 {
			u.initialWait = d
		}
	}
}

// WithRateLimit caps storage requests at rps requests per second.
// A zero or negative rps disables limiting.
func WithRateLimit(rps float64) Option {
	return func(u *Uploader) {
		if rps > 0 {
			u.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates an Uploader writing to the given store.
func New(store storage.ObjectStore, opts ...Option) *Uploader {
	u := &Uploader{
		store:       store,
		concurrency: DefaultConcurrency,
		maxRetries:  DefaultMaxRetries,
		initialWait: defaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload transfers every task, at most concurrency at a time. Per-task
// failures are collected into the Result without aborting siblings; only
// caller cancellation stops the run early, surfacing as a CANCELLED-coded
// error alongside the partial Result.
func (u *Uploader) Upload(ctx context.Context, tasks []layout.Task) (*Result, error) {
	type outcome struct {
		uploaded bool
		skipped  bool
		failure  *Failure
	}
	outcomes := make([]outcome, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			// Stop issuing work once cancelled; in-flight siblings drain.
			if err := gctx.Err(); err != nil {
				return err
			}

			uploaded, err := u.uploadOne(gctx, task)
			switch {
			case err == nil && uploaded:
				outcomes[i].uploaded = true
			case err == nil:
				outcomes[i].skipped = true
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				blobUploadsTotal.WithLabelValues("failed").Inc()
				outcomes[i].failure = &Failure{
					Task:  task,
					Code:  errors.CodeOf(err),
					Error: err.Error(),
				}
				slog.Error("blob transfer failed",
					slog.String("digest", task.Digest.String()),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}

	err := g.Wait()

	res := &Result{}
	for _, o := range outcomes {
		switch {
		case o.uploaded:
			res.Uploaded++
		case o.skipped:
			res.Skipped++
		case o.failure != nil:
			res.Failures = append(res.Failures, *o.failure)
		}
	}

	if err != nil {
		return res, errors.Wrap(errors.ErrCodeCancelled, "upload cancelled", err)
	}
	return res, nil
}

// uploadOne transfers a single task. Returns (false, nil) when the blob was
// already present.
func (u *Uploader) uploadOne(ctx context.Context, task layout.Task) (bool, error) {
	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	exists, err := u.withRetry(ctx, func() error {
		var checkErr error
		exists, checkErr := u.store.Exists(ctx, task.RemoteKey)
		if checkErr != nil {
			return checkErr
		}
		if exists {
			return errAlreadyPresent
		}
		return nil
	})
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeUpload, "existence check failed", err)
	}
	if exists {
		blobUploadsTotal.WithLabelValues("skipped").Inc()
		slog.Debug("blob already present, skipping",
			slog.String("digest", task.Digest.String()),
			slog.String("key", task.RemoteKey),
		)
		return false, nil
	}

	blobUploadsInFlight.Inc()
	defer blobUploadsInFlight.Dec()
	start := time.Now()

	if _, err := u.withRetry(ctx, func() error { return u.put(ctx, task) }); err != nil {
		return false, errors.WrapWithContext(errors.ErrCodeUpload,
			"upload retries exhausted", err,
			map[string]any{"digest": task.Digest.String(), "key": task.RemoteKey})
	}

	if err := u.verify(ctx, task); err != nil {
		return false, err
	}

	blobUploadsTotal.WithLabelValues("uploaded").Inc()
	blobUploadBytes.Add(float64(task.Size))
	blobUploadDuration.Observe(time.Since(start).Seconds())
	slog.Info("blob uploaded",
		slog.String("digest", task.Digest.String()),
		slog.String("key", task.RemoteKey),
		slog.Int64("size", task.Size),
		slog.Duration("duration", time.Since(start).Round(time.Millisecond)),
	)
	return true, nil
}

// put performs one upload attempt, streaming the blob from disk.
func (u *Uploader) put(ctx context.Context, task layout.Task) error {
	f, err := os.Open(task.LocalPath)
	if err != nil {
		// A missing local file will not heal on retry.
		return backoff.Permanent(err)
	}
	defer f.Close()

	contentType := task.MediaType
	if contentType == "" {
		contentType = storage.DefaultContentType
	}
	return u.store.Put(ctx, task.RemoteKey, f, task.Size, contentType)
}

// verify confirms the destination reports the same size as the source.
// A mismatch is a failed upload, never a silent partial success.
func (u *Uploader) verify(ctx context.Context, task layout.Task) error {
	size, ok, err := u.store.Stat(ctx, task.RemoteKey)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUpload, "post-upload stat failed", err)
	}
	if !ok {
		return errors.NewWithContext(errors.ErrCodeIntegrity,
			"uploaded object not found",
			map[string]any{"key": task.RemoteKey})
	}
	if size != task.Size {
		return errors.NewWithContext(errors.ErrCodeIntegrity,
			fmt.Sprintf("uploaded size %d does not match source size %d", size, task.Size),
			map[string]any{"digest": task.Digest.String(), "key": task.RemoteKey})
	}
	return nil
}

// errAlreadyPresent is a sentinel flowing out of the retried existence
// check; it is not a failure.
var errAlreadyPresent = fmt.Errorf("object already present")

// withRetry runs op with bounded exponential backoff. It returns true when
// op observed an already-present object.
func (u *Uploader) withRetry(ctx context.Context, op func() error) (bool, error) {
	present := false
	wrapped := func() error {
		err := op()
		if err == errAlreadyPresent {
			present = true
			return nil
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.initialWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, u.maxRetries), ctx)

	if err := backoff.Retry(wrapped, policy); err != nil {
		return false, err
	}
	return present, nil
}
