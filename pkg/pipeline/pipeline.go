/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/distribution/reference"
	"github.com/google/uuid"

	"github.com/imgvault/imgvault/pkg/convert"
	"github.com/imgvault/imgvault/pkg/defaults"
	"github.com/imgvault/imgvault/pkg/errors"
	"github.com/imgvault/imgvault/pkg/layout"
	"github.com/imgvault/imgvault/pkg/storage"
	"github.com/imgvault/imgvault/pkg/uploader"
)

// Result is the terminal output of one pipeline run.
type Result struct {
	// Image and Tag identify the mirrored source image.
	Image string `json:"image" yaml:"image"`
	Tag   string `json:"tag" yaml:"tag"`
	// RunID uniquely identifies this invocation in logs and temp state.
	RunID string `json:"runId" yaml:"runId"`
	// TotalBlobs is the number of artifacts the layout resolved to
	// (manifest, config, and layers).
	TotalBlobs int `json:"totalBlobs" yaml:"totalBlobs"`
	// Uploaded counts blobs transferred by this run.
	Uploaded int `json:"uploaded" yaml:"uploaded"`
	// Skipped counts blobs already present in the destination.
	Skipped int `json:"skipped" yaml:"skipped"`
	// Failures lists per-blob failures in task order.
	Failures []uploader.Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Pipeline mirrors container images into an object store.
//
// Configuration is explicit per instance, so pipelines with different
// destinations can run concurrently in one process.
type Pipeline struct {
	converter convert.Converter
	uploader  *uploader.Uploader
	workDir   string
}

// Option defines a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithConverter overrides the default skopeo converter.
func WithConverter(c convert.Converter) Option {
	return func(p *Pipeline) {
		p.converter = c
	}
}

// WithUploader overrides the default uploader.
func WithUploader(u *uploader.Uploader) Option {
	return func(p *Pipeline) {
		p.uploader = u
	}
}

// WithWorkDir sets the parent directory for per-run temporary layouts.
// Defaults to the system temp directory.
func WithWorkDir(dir string) Option {
	return func(p *Pipeline) {
		p.workDir = dir
	}
}

// New creates a Pipeline uploading to the given store.
func New(store storage.ObjectStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		converter: convert.NewSkopeo(),
		uploader:  uploader.New(store),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run mirrors image:tag into the destination store and reports per-blob
// outcomes.
//
// Conversion and layout failures are fatal and return a nil Result.
// Per-blob upload failures do not abort the run: the Result carries them
// and Run additionally returns an UPLOAD-coded error so fire-and-forget
// callers still observe the failure. Caller cancellation surfaces as a
// CANCELLED-coded error.
func (p *Pipeline) Run(ctx context.Context, image, tag string) (*Result, error) {
	start := time.Now()

	if err := validateRef(image, tag); err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	res := &Result{
		Image: image,
		Tag:   tag,
		RunID: uuid.NewString(),
	}
	log := slog.With(
		slog.String("run_id", res.RunID),
		slog.String("image", image),
		slog.String("tag", tag),
	)

	// Scoped temp layout, removed on every exit path.
	dir, err := os.MkdirTemp(p.workDir, "imgvault-"+res.RunID+"-*")
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create work directory", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn("failed to remove work directory", slog.String("error", rmErr.Error()))
		}
	}()

	log.Info("materializing image layout")
	convCtx, cancel := context.WithTimeout(ctx, defaults.ConversionTimeout)
	defer cancel()
	if err := p.converter.Convert(convCtx, image, tag, dir); err != nil {
		runsTotal.WithLabelValues(statusOf(err)).Inc()
		return nil, err
	}

	tasks, err := layout.Walk(dir, tag)
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	res.TotalBlobs = len(tasks)
	log.Info("layout walked", slog.Int("blobs", len(tasks)))

	up, err := p.uploader.Upload(ctx, tasks)
	res.Uploaded = up.Uploaded
	res.Skipped = up.Skipped
	res.Failures = up.Failures
	res.Duration = time.Since(start)
	if err != nil {
		runsTotal.WithLabelValues(statusOf(err)).Inc()
		return res, err
	}

	runDuration.Observe(res.Duration.Seconds())
	log.Info("pipeline finished",
		slog.Int("uploaded", res.Uploaded),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", len(res.Failures)),
		slog.Duration("duration", res.Duration.Round(time.Millisecond)),
	)

	if len(res.Failures) > 0 {
		runsTotal.WithLabelValues("partial").Inc()
		return res, errors.New(errors.ErrCodeUpload,
			fmt.Sprintf("%d of %d blobs failed to upload", len(res.Failures), res.TotalBlobs))
	}

	runsTotal.WithLabelValues("success").Inc()
	return res, nil
}

// validateRef rejects malformed image references before any work begins.
func validateRef(image, tag string) error {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid image name %q", image), err)
	}
	if _, err := reference.WithTag(named, tag); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid tag %q", tag), err)
	}
	return nil
}

func statusOf(err error) string {
	if errors.IsCode(err, errors.ErrCodeCancelled) {
		return "cancelled"
	}
	return "error"
}
