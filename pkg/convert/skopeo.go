/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package convert

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/imgvault/imgvault/pkg/errors"
)

// DefaultBinary is the conversion binary resolved from PATH when no
// explicit path is configured.
const DefaultBinary = "skopeo"

// Skopeo converts images by invoking the skopeo binary as a subprocess.
type Skopeo struct {
	// Binary overrides the skopeo executable path. Defaults to "skopeo"
	// resolved from PATH.
	Binary string
	// AllPlatforms copies every platform of a multi-arch image (--all).
	AllPlatforms bool
}

// NewSkopeo returns a Skopeo converter that copies all platforms.
func NewSkopeo() *Skopeo {
	return &Skopeo{AllPlatforms: true}
}

// Available reports whether the configured binary can be resolved.
// Called by the pipeline as a preflight so a missing binary surfaces
// before any work begins.
func (s *Skopeo) Available() error {
	if _, err := exec.LookPath(s.binary()); err != nil {
		return errors.Wrap(errors.ErrCodeConversion,
			s.binary()+" is not installed", err)
	}
	return nil
}

// Convert runs `skopeo copy [--all] docker://image:tag oci:dir:tag`.
// Stdout and stderr are captured as opaque diagnostic text and surfaced
// only on failure. A non-zero exit is always a CONVERSION-coded error.
func (s *Skopeo) Convert(ctx context.Context, image, tag, dir string) error {
	bin, err := exec.LookPath(s.binary())
	if err != nil {
		return errors.Wrap(errors.ErrCodeConversion,
			s.binary()+" is not installed", err)
	}

	args := []string{"copy"}
	if s.AllPlatforms {
		args = append(args, "--all")
	}
	args = append(args, SourceRef(image, tag), DestRef(dir, tag))

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	slog.Debug("converting image to OCI layout",
		slog.String("source", SourceRef(image, tag)),
		slog.String("dest", dir),
	)

	if runErr := cmd.Run(); runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(errors.ErrCodeCancelled, "image conversion cancelled", ctxErr)
		}
		// The binary may have failed to start, in which case there is no exit code.
		exitCode := -1
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return errors.WrapWithContext(errors.ErrCodeConversion,
			"image conversion failed", runErr,
			map[string]any{
				"exit_code": exitCode,
				"output":    output.String(),
			})
	}

	slog.Debug("image converted",
		slog.String("image", image),
		slog.String("tag", tag),
		slog.Duration("duration", time.Since(start).Round(time.Millisecond)),
	)
	return nil
}

func (s *Skopeo) binary() string {
	if s.Binary != "" {
		return s.Binary
	}
	return DefaultBinary
}
